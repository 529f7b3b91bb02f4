// Package cloudapi holds the hand-authored stand-ins for the
// control-plane RPC messages and client stub. Wire encoding is out of
// scope; only the shape matters here.
package cloudapi

import (
	"context"

	"github.com/google/uuid"
)

// ClusterStatus is the health state the control plane reports for a
// cluster.
type ClusterStatus int

const (
	StatusUnknown ClusterStatus = iota
	StatusHealthy
	StatusUnhealthy
)

// ClusterInfo is one control-plane record for a managed cluster.
type ClusterInfo struct {
	ID                 uuid.UUID
	PrettyName         string
	Status             ClusterStatus
	PassthroughEnabled bool
}

// GetClusterInfoRequest optionally narrows the listing to one cluster.
type GetClusterInfoRequest struct {
	ID uuid.UUID // zero value means "all clusters"
}

// GetClusterInfoResponse carries the matching cluster records.
type GetClusterInfoResponse struct {
	Clusters []ClusterInfo
}

// GetClusterConnectionInfoRequest asks for a direct-connection cluster's
// resolved address and per-cluster token.
type GetClusterConnectionInfoRequest struct {
	ID uuid.UUID
}

// GetClusterConnectionInfoResponse is the resolved direct-connection
// endpoint and credential for one cluster.
type GetClusterConnectionInfoResponse struct {
	IPAddress string
	Token     string
}

// VizierClusterInfoClient is the narrow control-plane RPC surface the
// directory needs, standing in for a generated
// cloudapipb.VizierClusterInfoClient.
type VizierClusterInfoClient interface {
	GetClusterInfo(ctx context.Context, req *GetClusterInfoRequest) (*GetClusterInfoResponse, error)
	GetClusterConnectionInfo(ctx context.Context, req *GetClusterConnectionInfoRequest) (*GetClusterConnectionInfoResponse, error)
}
