package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core"
)

func TestDSN(t *testing.T) {
	conf := &core.Config{Database: core.DatabaseConfig{
		Engine:        "postgres",
		Host:          "db",
		Port:          "5432",
		Name:          "darasa",
		User:          "darasa",
		Password:      "s3cr3t/pwd",
		AdminUser:     "postgres",
		AdminPassword: "admin",
	}}

	tests := []struct {
		name   string
		dbName string
		admin  bool
		tls    bool
		want   string
	}{
		{name: "app", dbName: "darasa", want: "postgres://darasa:s3cr3t%2Fpwd@db:5432/darasa?sslmode=require&timezone=utc"},
		{name: "admin", dbName: adminDB, admin: true, want: "postgres://postgres:admin@db:5432/postgres?sslmode=require&timezone=utc"},
		{name: "no tls", dbName: "darasa", tls: true, want: "postgres://darasa:s3cr3t%2Fpwd@db:5432/darasa?sslmode=disable&timezone=utc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf.Database.DisableTLS = tt.tls
			assert.Equal(t, tt.want, dsn(tt.dbName, tt.admin, conf))
		})
	}

	// without an admin role the app role is used
	conf.Database.AdminUser = ""
	conf.Database.DisableTLS = false
	assert.Equal(t, "postgres://darasa:s3cr3t%2Fpwd@db:5432/postgres?sslmode=require&timezone=utc", dsn(adminDB, true, conf))
}
