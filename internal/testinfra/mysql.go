// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultMySQLImage is the MySQL server image used by tests.
	DefaultMySQLImage = "mysql:8.4"

	mysqlPort     = "3306/tcp"
	mysqlDatabase = "machinelog"
	mysqlPassword = "machinelog"
)

// MySQLContainer is a running MySQL server with an empty database.
type MySQLContainer struct {
	testcontainers.Container
	DSN string // go-sql-driver format
}

// NewMySQLContainer starts MySQL and waits until it accepts connections.
func NewMySQLContainer(ctx context.Context) (*MySQLContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        DefaultMySQLImage,
		ExposedPorts: []string{mysqlPort},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": mysqlPassword,
			"MYSQL_DATABASE":      mysqlDatabase,
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("port: 3306  MySQL Community Server"),
			wait.ForListeningPort(mysqlPort),
		).WithStartupTimeout(2 * time.Minute),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create mysql container: %w", err)
	}

	addr, err := hostPort(ctx, container, mysqlPort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, err
	}

	return &MySQLContainer{
		Container: container,
		DSN:       fmt.Sprintf("root:%s@tcp(%s)/%s?parseTime=true", mysqlPassword, addr, mysqlDatabase),
	}, nil
}
