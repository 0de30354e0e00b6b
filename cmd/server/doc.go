// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

/*
Package main is the entry point for the Machinelog server.

Machinelog keeps maintenance records for CNC machines, tracks findings raised
against them and converts Siemens PLC user alarms (70XXXX) to and from the
DB address of their alarm bit (DB2 on 840D, DB1600 on 828D).

# Application Architecture

Components run under a Suture v4 supervisor tree:

	RootSupervisor ("machinelog")
	├── DataSupervisor ("data-layer")
	│   ├── Session janitor (expired session cleanup)
	│   ├── Audit retention (when AUDIT_ENABLED)
	│   └── Cache janitor (tag and machine listings)
	├── MessagingSupervisor ("messaging-layer")
	│   └── WebSocket Hub (record, machine and finding events)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (chi router)

Initialization order:

 1. Configuration: Koanf v2 (defaults, config.yaml, environment)
 2. Logging: zerolog, JSON or console
 3. Database: DuckDB, SQLite or MySQL, schema applied on open
 4. Seed: demo users, machines and tags when SEED_DATA=true
 5. Sessions: in-memory or BadgerDB
 6. Authorization: Casbin RBAC with the embedded model and policy
 7. Storage: MinIO, ImageKit and Google Drive behind circuit breakers
 8. Audit trail: zerolog line plus async persisted event
 9. Supervisor tree and HTTP server

# Configuration

	HTTP_PORT=8080
	DB_DRIVER=duckdb             # duckdb, sqlite or mysql
	DB_PATH=/data/machinelog.duckdb
	DATABASE_URL=user:pw@tcp(mysql:3306)/machinelog?parseTime=true
	JWT_SECRET=<32+ chars>
	SESSION_STORE=badger         # badger or memory
	MINIO_ENDPOINT=minio:9000
	IMAGEKIT_PRIVATE_KEY=private_...
	GOOGLE_CLIENT_ID=...
	GOOGLE_CLIENT_SECRET=...
	REDIRECT_URI=http://localhost:8080/api/v1/oauth2/callback
	AUDIT_ENABLED=true
	AUDIT_RETENTION_DAYS=90

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains in-flight
requests for SHUTDOWN_TIMEOUT, the hub closes client connections, and the
session store and database are closed last.
*/
package main
