package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
database:
  type: "pg"
  host: "localhost"
  port: 5432
  username: "u"
  password: "p"
  name: "sptms"
kafka:
  host: "localhost"
  port: 9092
redis:
  host: "localhost"
  port: 6379
sptms:
  http_addr: ":8080"
  kafka_consumer_group: "sptms-api"
  billing_company_name: "Sprint Logistics LLC"
  quick_pay_fee_percent: 3
  worker_http_addr: ":8081"
  worker_poll_interval_seconds: 60
  worker_batch_size: 50
`), 0o600))

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, "pg", cfg.Database.Type)
	require.Equal(t, "u", cfg.Database.Username)
	require.Equal(t, "localhost:9092", cfg.Kafka.Addr())
	require.Equal(t, "localhost:6379", cfg.Redis.Addr())
	require.Equal(t, ":8080", cfg.SPTMS.HTTPAddr)
	require.Equal(t, "Sprint Logistics LLC", cfg.SPTMS.BillingCompanyName)
	require.InDelta(t, 3.0, cfg.SPTMS.QuickPayFeePercent, 0.001)
}

func TestPostgresDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, Username: "u", Password: "p", DBName: "sptms"}
	require.Equal(t, "postgres://u:p@db:5432/sptms?sslmode=disable", d.PostgresDSN())
}

func TestProvidersFromEnv(t *testing.T) {
	t.Setenv("DAT_CLIENT_ID", "dat-client")
	t.Setenv("MACROPOINT_API_ID", "mp-id")
	t.Setenv("QUICKBOOKS_ENVIRONMENT", "production")

	p := loadProviders()
	require.Equal(t, "dat-client", p.DAT.ClientID)
	require.Equal(t, "https://api.dat.com", p.DAT.APIURL)
	require.Equal(t, "mp-id", p.MacroPoint.APIID)
	require.Equal(t, "production", p.QuickBooks.Environment)
}
