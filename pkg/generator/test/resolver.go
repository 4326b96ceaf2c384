// Package test holds helpers shared by the generator's package tests.
package test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/tigerroll/eventgen/pkg/generator/adapter/database"
)

// MockDBConnectionResolver is a testify mock of database.DBConnectionResolver.
type MockDBConnectionResolver struct {
	mock.Mock
}

// ResolveDBConnection mocks the ResolveDBConnection method.
func (m *MockDBConnectionResolver) ResolveDBConnection(ctx context.Context, name string) (database.DBConnection, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(database.DBConnection), args.Error(1)
}

type singleConnectionResolver struct {
	conn database.DBConnection
}

func (r *singleConnectionResolver) ResolveDBConnection(context.Context, string) (database.DBConnection, error) {
	return r.conn, nil
}

// NewSingleConnectionResolver returns a resolver that answers every name with conn.
func NewSingleConnectionResolver(conn database.DBConnection) database.DBConnectionResolver {
	return &singleConnectionResolver{conn: conn}
}

var _ database.DBConnectionResolver = (*MockDBConnectionResolver)(nil)
