package customer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contractx "github.com/techflow/careflow/agent/contract"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVStoreLookup(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "customers.csv",
		"customer_id,name,email,tier\n"+
			"CUST-1,Alice,alice@example.com,premium\n"+
			"CUST-2,Ben,ben@example.com,regular\n")

	store, err := NewCSVStore(path)
	require.NoError(t, err)

	profile, err := store.Lookup(context.Background(), "Alice@Example.COM")
	require.NoError(t, err)
	assert.Equal(t, "CUST-1", profile.Get("customer_id"))
	assert.Equal(t, "premium", profile.Get("tier"))

	_, err = store.Lookup(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, contractx.ErrProfileNotFound)
}

func TestCSVStoreLookupReturnsCopy(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "customers.csv",
		"email,tier\nalice@example.com,premium\n")

	store, err := NewCSVStore(path)
	require.NoError(t, err)

	first, err := store.Lookup(context.Background(), "alice@example.com")
	require.NoError(t, err)
	first["tier"] = "tampered"

	second, err := store.Lookup(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "premium", second.Get("tier"))
}

func TestCSVStoreRequiresEmailColumn(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "customers.csv", "customer_id,name\nCUST-1,Alice\n")

	_, err := NewCSVStore(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, errMissingEmailColumn)
}
