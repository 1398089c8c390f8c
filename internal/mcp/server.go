package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"tableread/internal/store"
)

type Server struct {
	db  store.Store
	mcp *sdk.Server
}

func NewServer(db store.Store, version string) *Server {
	s := &Server{
		db: db,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "tableread",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
