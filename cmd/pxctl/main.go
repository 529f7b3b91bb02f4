// Command pxctl is a thin example CLI over the pxapi client: it lists
// healthy clusters and runs a PxL script against one of them, printing
// rows as they arrive. It exists to exercise the library end to end,
// not as a production tool.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"google.golang.org/grpc"

	"github.com/FlorentATo/pixie/internal/cloudapi"
	"github.com/FlorentATo/pixie/internal/vizierpb"
	"github.com/FlorentATo/pixie/pxapi"
	"github.com/FlorentATo/pixie/pxerror"
)

var (
	serverURL   string
	apiToken    string
	clusterName string
	scriptFile  string
	tableName   string
	timeout     time.Duration
)

func registerFlags(fs *pflag.FlagSet) {
	fs.StringVar(&serverURL, "server_url", "work.withpixie.ai:443", "Cloud control-plane endpoint.")
	fs.StringVar(&apiToken, "api_token", os.Getenv("PX_API_KEY"), "API token; defaults to $PX_API_KEY.")
	fs.StringVar(&clusterName, "cluster", "", "Cluster name to run against; first healthy cluster if empty.")
	fs.StringVar(&scriptFile, "script", "", "Path to a PxL script file to run.")
	fs.StringVar(&tableName, "table", "", "Table name to print rows from.")
	fs.DurationVar(&timeout, "timeout", 30*time.Second, "Overall command timeout.")
}

func main() {
	fs := pflag.NewFlagSet("pxctl", pflag.ExitOnError)
	registerFlags(fs)
	fs.Parse(os.Args[1:])

	if err := run(fs.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "pxctl:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if apiToken == "" {
		return fmt.Errorf("--api_token (or $PX_API_KEY) is required")
	}
	if len(args) == 0 {
		return fmt.Errorf("usage: pxctl <list-clusters|run-script> [flags]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := pxapi.NewClient(apiToken, serverURL,
		pxapi.GRPCControlPlaneDialer(newControlPlaneStub),
		pxapi.GRPCDataPlaneDialer(newDataPlaneStub),
	)
	if err != nil {
		return err
	}

	switch args[0] {
	case "list-clusters":
		return listClusters(ctx, client)
	case "run-script":
		return runScript(ctx, client)
	default:
		return fmt.Errorf("unknown subcommand %q", args[0])
	}
}

func listClusters(ctx context.Context, client *pxapi.Client) error {
	clusters, err := client.ListHealthyClusters(ctx)
	if err != nil {
		return err
	}
	for _, c := range clusters {
		fmt.Printf("%s\t%s\n", c.ID(), c.Name())
	}
	return nil
}

func runScript(ctx context.Context, client *pxapi.Client) error {
	if scriptFile == "" || tableName == "" {
		return fmt.Errorf("run-script requires --script and --table")
	}
	text, err := os.ReadFile(scriptFile)
	if err != nil {
		return err
	}

	clusters, err := client.ListHealthyClusters(ctx)
	if err != nil {
		return err
	}
	cluster, err := pickCluster(clusters)
	if err != nil {
		return err
	}

	conn, err := client.ConnectToCluster(ctx, cluster)
	if err != nil {
		return err
	}

	script := conn.CreateScript(string(text))
	if err := script.AddCallback(tableName, printRow); err != nil {
		return err
	}
	if err := script.Run(); err != nil {
		if perr, ok := pxerror.As(err); ok {
			return fmt.Errorf("%s: %w", perr.Kind, err)
		}
		return err
	}
	return nil
}

func pickCluster(clusters []*pxapi.ClusterHandle) (*pxapi.ClusterHandle, error) {
	if len(clusters) == 0 {
		return nil, fmt.Errorf("no healthy clusters")
	}
	if clusterName == "" {
		return clusters[0], nil
	}
	for _, c := range clusters {
		if c.Name() == clusterName {
			return c, nil
		}
	}
	return nil, fmt.Errorf("cluster %q not found among healthy clusters", clusterName)
}

func printRow(row pxapi.Row) error {
	for _, col := range row.Schema().Columns {
		v, _ := row.Get(col.Name)
		fmt.Printf("%s=%v ", col.Name, v)
	}
	fmt.Println()
	return nil
}

// newControlPlaneStub and newDataPlaneStub exist so pxctl links against
// real grpc.ClientConn plumbing without depending on a generated stub
// package (out of scope for this module); they return clients whose
// RPCs always fail, since pxctl's point is demonstrating the pxapi call
// shape, not a working production dialer.
func newControlPlaneStub(_ *grpc.ClientConn) cloudapi.VizierClusterInfoClient {
	return unimplementedControlPlane{}
}

func newDataPlaneStub(_ *grpc.ClientConn) vizierpb.VizierServiceClient {
	return unimplementedDataPlane{}
}

type unimplementedControlPlane struct{}

func (unimplementedControlPlane) GetClusterInfo(context.Context, *cloudapi.GetClusterInfoRequest) (*cloudapi.GetClusterInfoResponse, error) {
	return nil, fmt.Errorf("pxctl: no control-plane dialer configured; wire a real gRPC stub via pxapi.GRPCControlPlaneDialer")
}

func (unimplementedControlPlane) GetClusterConnectionInfo(context.Context, *cloudapi.GetClusterConnectionInfoRequest) (*cloudapi.GetClusterConnectionInfoResponse, error) {
	return nil, fmt.Errorf("pxctl: no control-plane dialer configured; wire a real gRPC stub via pxapi.GRPCControlPlaneDialer")
}

type unimplementedDataPlane struct{}

func (unimplementedDataPlane) ExecuteScript(context.Context, *vizierpb.ExecuteScriptRequest) (vizierpb.ResponseReceiver, error) {
	return nil, fmt.Errorf("pxctl: no data-plane dialer configured; wire a real gRPC stub via pxapi.GRPCDataPlaneDialer")
}
