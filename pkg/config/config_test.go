package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
environment: test
calibration:
  symbols:
    - symbol: BTC
      min_price: 30000
      max_price: 299720
`

func TestParse_Defaults(t *testing.T) {
	c, err := Parse([]byte(minimal))
	require.NoError(t, err)

	assert.Equal(t, "test", c.Environment)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 1.0, c.Risk.CoefMin)
	assert.Equal(t, 1.6, c.Risk.CoefMax)
	assert.Equal(t, 80.0, c.Risk.Thresholds.StrongBuy)
	assert.Equal(t, 20.0, c.Risk.Thresholds.Sell)
	assert.Equal(t, 8, c.Risk.Workers)
	assert.Equal(t, 5*time.Minute, c.Cache.BoundsTTL)
	assert.Equal(t, "v1", c.Calibration.Version)
	assert.Equal(t, "band_distribution.updated", c.Kafka.DistributionTopic)
	assert.Equal(t, -1, c.Kafka.RequiredAcks)
	assert.Equal(t, "info", c.Logging.Level)
	assert.Equal(t, []string{"BTC"}, c.Calibration.SymbolNames())
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"coef order": `
risk:
  coef_min: 1.5
  coef_max: 1.2
`,
		"thresholds": `
risk:
  thresholds: {strong_buy: 80, buy: 85, neutral: 40, sell: 20}
`,
		"bounds": `
calibration:
  symbols:
    - {symbol: BTC, min_price: 10, max_price: 5}
`,
		"coefficient count": `
calibration:
  symbols:
    - {symbol: BTC, min_price: 1, max_price: 5, coefficients: [1.0, 1.2]}
`,
		"duplicate": `
calibration:
  symbols:
    - {symbol: BTC, min_price: 1, max_price: 5}
    - {symbol: BTC, min_price: 1, max_price: 6}
`,
		"days without total": `
calibration:
  symbols:
    - {symbol: BTC, min_price: 1, max_price: 5, days_spent: [1,2,3,4,5,6,7,8,9,10]}
`,
		"kafka without brokers": `
kafka:
  enabled: true
  brokers: []
`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Parse([]byte(minimal))
	require.NoError(t, err)

	env := map[string]string{
		"RISK_DEGRADE":  "true",
		"KAFKA_BROKERS": "k1:9092,k2:9092",
		"REDIS_ADDR":    "redis:6379",
		"POSTGRES_URL":  "postgres://u:p@db/finrisk",
	}
	require.NoError(t, c.applyEnv(func(k string) string { return env[k] }))

	assert.True(t, c.Risk.DegradeGracefully)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, "redis:6379", c.Redis.Addr)
	assert.True(t, c.Postgres.Enabled)
	assert.NoError(t, c.Validate())

	err = c.applyEnv(func(k string) string {
		if k == "RISK_DEGRADE" {
			return "maybe"
		}
		return ""
	})
	assert.Error(t, err)
}

func TestLoad_ExampleFile(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)

	btc, ok := c.Calibration.Lookup("BTC")
	require.True(t, ok)
	assert.Len(t, btc.Coefficients, 10)

	eth, ok := c.Calibration.Lookup("ETH")
	require.True(t, ok)
	assert.Len(t, eth.DaysSpent, 10)
	assert.Equal(t, 1521, eth.TotalDays)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
