package cmd

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/ridebook/internal/storage"
)

func TestSchemaInit_Idempotent(t *testing.T) {
	withTempDB(t)
	withPlainColors(t)

	for i := 0; i < 2; i++ {
		out, err := runCaptured(t, func() error { return runSchemaInit(schemaInitCmd, nil) })
		require.NoError(t, err)
		assert.Contains(t, out, "Schema ready")
		assert.Contains(t, out, fmt.Sprintf("Version:  %d", storage.SchemaVersion))
	}
}

func TestSchemaCheck(t *testing.T) {
	withTempDB(t)
	withPlainColors(t)

	out, err := runCaptured(t, func() error { return runSchemaCheck(schemaCheckCmd, nil) })
	require.NoError(t, err)
	assert.Contains(t, out, "Tables:   OK")
	assert.Contains(t, out, "FKs:      ON")
}
