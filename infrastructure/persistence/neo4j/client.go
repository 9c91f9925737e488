package neo4j

import (
	"context"
	"fmt"

	"recommender/domain/core/entities"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Config holds the connection settings of the graph database
type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// Client wraps a driver bound to one database
type Client struct {
	driver neo4j.DriverWithContext
	config Config
	logger *zap.Logger
}

// NewClient connects, verifies connectivity and ensures the id constraints exist
func NewClient(ctx context.Context, config Config, logger *zap.Logger) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(
		config.URI,
		neo4j.BasicAuth(config.Username, config.Password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}

	client := &Client{
		driver: driver,
		config: config,
		logger: logger,
	}

	if err := client.Ping(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to Neo4j: %w", err)
	}

	if err := client.createConstraints(ctx); err != nil {
		logger.Warn("Failed to create Neo4j constraints", zap.Error(err))
	}

	return client, nil
}

// Ping verifies the database is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

// Close closes the driver
func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// createConstraints makes id unique per label, which also indexes the anchor lookups
func (c *Client) createConstraints(ctx context.Context) error {
	_, err := c.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		for _, kind := range entities.NodeKinds() {
			query := fmt.Sprintf(
				"CREATE CONSTRAINT %s_id_unique IF NOT EXISTS FOR (n:%s) REQUIRE n.id IS UNIQUE",
				kind, kind,
			)
			if _, err := tx.Run(ctx, query, nil); err != nil {
				return nil, fmt.Errorf("constraint on %s: %w", kind, err)
			}
		}
		return nil, nil
	})
	return err
}

// ExecuteWrite runs work in a managed write transaction
func (c *Client) ExecuteWrite(ctx context.Context, work neo4j.ManagedTransactionWork) (interface{}, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.config.Database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer session.Close(ctx)

	return session.ExecuteWrite(ctx, work)
}

// ExecuteRead runs work in a managed read transaction
func (c *Client) ExecuteRead(ctx context.Context, work neo4j.ManagedTransactionWork) (interface{}, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.config.Database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	return session.ExecuteRead(ctx, work)
}
