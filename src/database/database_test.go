package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndMigrate(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(db))
	// A second run is a no-op.
	require.NoError(t, Migrate(db))

	for _, table := range []string{"users", "sessions", "comptes", "recurrences", "transactions"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}

	var fk int
	require.NoError(t, db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestRecurrenceDateUniqueness(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(db))

	_, err = db.Exec(`INSERT INTO users (username, email) VALUES ('u', 'u@example.com')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO comptes (user_id, nom) VALUES (1, 'Courant')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO recurrences (user_id, compte_id, libelle, montant, type_operation, frequence, date_debut, prochaine_execution)
		VALUES (1, 1, 'Loyer', '800', 'debit', 'mensuel', '2024-01-01', '2024-01-01')`)
	require.NoError(t, err)

	insert := `INSERT INTO transactions (user_id, compte_id, recurrence_id, date_transaction, libelle, montant, type_operation)
		VALUES (1, 1, ?, '2024-01-01', 'Loyer', '800', 'debit')`
	_, err = db.Exec(insert, 1)
	require.NoError(t, err)
	_, err = db.Exec(insert, 1)
	assert.Error(t, err, "duplicate occurrence for one template and date must be rejected")

	// Manual transactions are not constrained.
	_, err = db.Exec(insert, nil)
	require.NoError(t, err)
	_, err = db.Exec(insert, nil)
	require.NoError(t, err)
}
