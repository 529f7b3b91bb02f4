package pxapi

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/FlorentATo/pixie/internal/cloudapi"
	"github.com/FlorentATo/pixie/internal/logging"
	"github.com/FlorentATo/pixie/internal/vizierpb"
	"github.com/FlorentATo/pixie/pxerror"
)

// ControlPlaneDialer opens the control-plane client bound to the
// cloud's server URL. Tests substitute an in-memory or insecure
// variant; production callers typically use GRPCControlPlaneDialer.
type ControlPlaneDialer func(serverURL string) (cloudapi.VizierClusterInfoClient, error)

// DataPlaneDialer opens a data-plane client bound to one endpoint
// (the cloud passthrough endpoint, or a cluster's direct endpoint) and
// credential.
type DataPlaneDialer func(address, token string) (vizierpb.VizierServiceClient, error)

// GRPCControlPlaneDialer builds a ControlPlaneDialer from a function
// that wraps a dialed *grpc.ClientConn into the narrow
// cloudapi.VizierClusterInfoClient surface. Wire encoding and stub
// generation are out of scope for this module; callers supply their
// own codegen'd constructor here.
func GRPCControlPlaneDialer(newClient func(*grpc.ClientConn) cloudapi.VizierClusterInfoClient) ControlPlaneDialer {
	return func(serverURL string) (cloudapi.VizierClusterInfoClient, error) {
		cc, err := grpc.NewClient(serverURL, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, pxerror.Transport(err)
		}
		return newClient(cc), nil
	}
}

// GRPCDataPlaneDialer is the data-plane analogue of
// GRPCControlPlaneDialer. The token argument is not attached to the
// dialed connection, which uses insecure transport credentials.
func GRPCDataPlaneDialer(newClient func(*grpc.ClientConn) vizierpb.VizierServiceClient) DataPlaneDialer {
	return func(address, token string) (vizierpb.VizierServiceClient, error) {
		cc, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, pxerror.Transport(err)
		}
		return newClient(cc), nil
	}
}

// Client is the top-level entry point: it discovers clusters through
// the control plane and opens connections to them.
type Client struct {
	token     string
	serverURL string
	dataDial  DataPlaneDialer

	control   cloudapi.VizierClusterInfoClient
	cloudData vizierpb.VizierServiceClient
}

// NewClient constructs a Client. controlDial and dataDial are required:
// there is no hidden default transport, since wire encoding and stub
// generation are out of scope for this module.
func NewClient(token, serverURL string, controlDial ControlPlaneDialer, dataDial DataPlaneDialer) (*Client, error) {
	control, err := controlDial(serverURL)
	if err != nil {
		return nil, err
	}
	cloudData, err := dataDial(serverURL, token)
	if err != nil {
		return nil, err
	}
	return &Client{
		token:     token,
		serverURL: serverURL,
		dataDial:  dataDial,
		control:   control,
		cloudData: cloudData,
	}, nil
}

// ClusterHandle is an immutable, healthy-or-not cluster record
// returned by ListHealthyClusters.
type ClusterHandle struct {
	info cloudapi.ClusterInfo
}

// ID returns the cluster's opaque identifier.
func (c *ClusterHandle) ID() uuid.UUID { return c.info.ID }

// Name returns the cluster's human-readable name.
func (c *ClusterHandle) Name() string { return c.info.PrettyName }

// Healthy reports the cluster's last-known health state.
func (c *ClusterHandle) Healthy() bool { return c.info.Status == cloudapi.StatusHealthy }

// ListHealthyClusters returns the clusters the control plane currently
// reports as healthy.
func (c *Client) ListHealthyClusters(ctx context.Context) ([]*ClusterHandle, error) {
	resp, err := c.control.GetClusterInfo(ctx, &cloudapi.GetClusterInfoRequest{})
	if err != nil {
		return nil, pxerror.Transport(err)
	}
	handles := make([]*ClusterHandle, 0, len(resp.Clusters))
	for _, ci := range resp.Clusters {
		if ci.Status == cloudapi.StatusHealthy {
			handles = append(handles, &ClusterHandle{info: ci})
		}
	}
	return handles, nil
}

// ConnectToCluster resolves how to reach the given cluster (passthrough
// via the cloud endpoint, or direct via a fetched per-cluster endpoint
// and token) and returns a ready VizierConn.
func (c *Client) ConnectToCluster(ctx context.Context, cluster *ClusterHandle) (*VizierConn, error) {
	if cluster.info.PassthroughEnabled {
		return &VizierConn{clusterID: cluster.info.ID, dataPlane: c.cloudData}, nil
	}

	connInfo, err := c.control.GetClusterConnectionInfo(ctx, &cloudapi.GetClusterConnectionInfoRequest{ID: cluster.info.ID})
	if err != nil {
		return nil, pxerror.Transport(err)
	}
	dataPlane, err := c.dataDial(connInfo.IPAddress, connInfo.Token)
	if err != nil {
		return nil, err
	}
	logging.Infof("connected directly to cluster %s at %s", cluster.info.ID, connInfo.IPAddress)
	return &VizierConn{clusterID: cluster.info.ID, dataPlane: dataPlane}, nil
}

// VizierConn is a ready-to-script connection to one cluster's
// data-plane endpoint.
type VizierConn struct {
	clusterID uuid.UUID
	dataPlane vizierpb.VizierServiceClient
}

// CreateScript prepares a new execution session for the given PxL
// script text. The script is not sent until Run or RunAsync is called.
func (vc *VizierConn) CreateScript(text string) *Script {
	return newScript(vc, text)
}

func (vc *VizierConn) openStream(ctx context.Context, text string) (vizierpb.ResponseReceiver, error) {
	recv, err := vc.dataPlane.ExecuteScript(ctx, &vizierpb.ExecuteScriptRequest{
		QueryStr:  text,
		ClusterID: vc.clusterID,
	})
	if err != nil {
		return nil, pxerror.Transport(err)
	}
	return recv, nil
}
