// Package datasource defines the data-source descriptor consumed by the
// connection pool. A data source names one relational store, the driver used
// to reach it and the limits the pool enforces against it.
package datasource

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"
)

// DefaultDriver is the database/sql driver used when none is configured.
const DefaultDriver = "sqlserver"

// DefaultMaxConnections is the pool bound used when none is configured.
const DefaultMaxConnections = 10

// ErrMissingDSN is reported when neither a DSN nor a host is configured.
var ErrMissingDSN = errors.New("data source connection string is not configured")

// DataSource describes the store a pool connects to.
type DataSource struct {
	Name                string        `yaml:"name"`
	Driver              string        `yaml:"driver"`
	DSN                 string        `yaml:"dsn"`
	Host                string        `yaml:"host"`
	Port                int           `yaml:"port"`
	Database            string        `yaml:"database"`
	Username            string        `yaml:"username"`
	Password            string        `yaml:"password"`
	MaxConnections      int           `yaml:"max_connections"`
	MaxIdleTime         time.Duration `yaml:"max_idle_time"`
	ConnectionTimeout   time.Duration `yaml:"connection_timeout"`
	AcquireTimeout      time.Duration `yaml:"acquire_timeout"`
	HealthCheckInterval time.Duration `yaml:"health_check_interval"`
}

// Validate reports whether the descriptor can be used to open connections.
func (d *DataSource) Validate() error {
	if d.DSN == "" && d.Host == "" {
		return ErrMissingDSN
	}
	if d.MaxConnections < 1 {
		return fmt.Errorf("max_connections must be at least 1, got %d", d.MaxConnections)
	}
	if d.AcquireTimeout < 0 {
		return fmt.Errorf("acquire_timeout must not be negative, got %s", d.AcquireTimeout)
	}
	return nil
}

// DriverName returns the configured driver or DefaultDriver.
func (d *DataSource) DriverName() string {
	if d.Driver == "" {
		return DefaultDriver
	}
	return d.Driver
}

// ConnString returns the DSN when set, otherwise a SQL Server URL built from
// the host, port, database and credentials.
func (d *DataSource) ConnString() string {
	if d.DSN != "" {
		return d.DSN
	}

	q := url.Values{}
	if d.Database != "" {
		q.Set("database", d.Database)
	}
	if d.ConnectionTimeout > 0 {
		q.Set("connection timeout", strconv.Itoa(int(d.ConnectionTimeout.Seconds())))
	}

	u := url.URL{
		Scheme:   "sqlserver",
		Host:     d.Addr(),
		RawQuery: q.Encode(),
	}
	if d.Username != "" {
		u.User = url.UserPassword(d.Username, d.Password)
	}
	return u.String()
}

// Addr returns the host:port address of the store.
func (d *DataSource) Addr() string {
	if d.Port == 0 {
		return d.Host
	}
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}
