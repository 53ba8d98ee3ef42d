package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDriverURL(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"postgres://u:p@localhost:5432/db?sslmode=disable": "pgx5://u:p@localhost:5432/db?sslmode=disable",
		"postgresql://u@db/lb":                             "pgx5://u@db/lb",
		"pgx5://u@db/lb":                                   "pgx5://u@db/lb",
	}
	for in, expected := range tests {
		assert.Equal(t, expected, driverURL(in))
	}
}
