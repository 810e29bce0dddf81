package registry

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbxmgr/rbxmgr/internal/common"
	"github.com/rbxmgr/rbxmgr/internal/models"
)

func TestImportLines(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRegistry(t, nil)

	data := "dave:pw1\neve:pw2\ndave:pw3\n# comment\n\n"
	added, skipped, err := r.ImportAccounts(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, 1, skipped)

	accounts := r.Accounts()
	require.Len(t, accounts, 2)
	assert.Equal(t, "dave", accounts[0].Username)
	assert.Equal(t, "pw1", accounts[0].Password, "first occurrence wins")
	assert.Equal(t, "eve", accounts[1].Username)
}

func TestImportJSONArray(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRegistry(t, nil)

	data := `[
		{"username": "alice", "password": "pw", "alias": "Main", "group": "VIP"},
		{"username": "xy", "password": "pw"},
		{"username": "bob", "password": "pw"}
	]`
	added, skipped, err := r.ImportAccounts(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, 2, added, "too-short username is skipped")
	assert.Equal(t, 1, skipped)
	assert.Contains(t, r.Groups(), "VIP")
}

func TestImportSingleJSONObject(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRegistry(t, nil)

	added, skipped, err := r.ImportAccounts(ctx, `{"username": "alice", "password": "pw"}`)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Zero(t, skipped)
}

func TestImportSkipsExistingAccounts(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRegistry(t, nil)

	_, err := r.Add(ctx, draft("Alice"))
	require.NoError(t, err)

	added, skipped, err := r.ImportAccounts(ctx, "alice:pw\nbob:pw")
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Equal(t, 1, skipped)
}

func TestImportRejectsGarbage(t *testing.T) {
	r, _ := newTestRegistry(t, nil)

	_, _, err := r.ImportAccounts(context.Background(), "   ")
	require.ErrorIs(t, err, common.ErrValidation)

	_, _, err = r.ImportAccounts(context.Background(), `[{"username":`)
	require.ErrorIs(t, err, common.ErrValidation)
}

func seedExportAccounts(t *testing.T, r *Registry) (valid, invalid *models.Account) {
	t.Helper()
	ctx := context.Background()

	valid, err := r.Add(ctx, models.Draft{
		Username: "alice", Password: "pw-a", Alias: "Main", Group: "VIP",
	})
	require.NoError(t, err)
	valid.Valid = models.ValidityValid

	invalid, err = r.Add(ctx, models.Draft{Username: "bob", Password: "pw-b"})
	require.NoError(t, err)
	invalid.Valid = models.ValidityInvalid
	return valid, invalid
}

func TestExportJSONRedactsCredentials(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRegistry(t, nil)
	seedExportAccounts(t, r)

	out, err := r.ExportAccounts(ctx, ExportOptions{Format: FormatJSON})
	require.NoError(t, err)
	assert.NotContains(t, out, "pw-a")
	assert.NotContains(t, out, "password")

	var recs []models.ExportRecord
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	require.Len(t, recs, 2)
	assert.Equal(t, "alice", recs[0].Username)
	assert.Equal(t, "VIP", recs[0].Group)
}

func TestExportJSONWithPasswords(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRegistry(t, nil)
	seedExportAccounts(t, r)

	out, err := r.ExportAccounts(ctx, ExportOptions{Format: FormatJSON, IncludePasswords: true})
	require.NoError(t, err)
	assert.Contains(t, out, "pw-a")
	assert.Contains(t, out, "pw-b")
}

func TestExportCSV(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRegistry(t, nil)
	seedExportAccounts(t, r)

	out, err := r.ExportAccounts(ctx, ExportOptions{Format: FormatCSV})
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Username", "Alias", "Group", "Description"}, rows[0])
	assert.Equal(t, []string{"alice", "Main", "VIP", ""}, rows[1])
	assert.NotContains(t, out, "pw-a")
}

func TestExportCSVNeverIncludesPasswords(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRegistry(t, nil)
	seedExportAccounts(t, r)

	// Asking for passwords changes nothing on the CSV branch.
	out, err := r.ExportAccounts(ctx, ExportOptions{Format: FormatCSV, IncludePasswords: true})
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	for _, row := range rows {
		assert.Len(t, row, 4)
	}
	assert.Equal(t, []string{"Username", "Alias", "Group", "Description"}, rows[0])
	assert.NotContains(t, out, "pw-a")
	assert.NotContains(t, out, "pw-b")
	assert.NotContains(t, strings.ToLower(out), "password")
}

func TestExportText(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRegistry(t, nil)
	seedExportAccounts(t, r)

	out, err := r.ExportAccounts(ctx, ExportOptions{Format: FormatText, IncludePasswords: true})
	require.NoError(t, err)
	assert.Equal(t, "alice:pw-a\nbob:pw-b\n", out)

	out, err = r.ExportAccounts(ctx, ExportOptions{Format: FormatText})
	require.NoError(t, err)
	assert.Equal(t, "alice\nbob\n", out)
}

func TestExportScopes(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRegistry(t, nil)
	valid, _ := seedExportAccounts(t, r)

	out, err := r.ExportAccounts(ctx, ExportOptions{Format: FormatText, Scope: ScopeValid})
	require.NoError(t, err)
	assert.Equal(t, "alice\n", out)

	r.Select(ctx, valid.ID, true)
	out, err = r.ExportAccounts(ctx, ExportOptions{Format: FormatText, Scope: ScopeSelected})
	require.NoError(t, err)
	assert.Equal(t, "alice\n", out)

	_, err = r.ExportAccounts(ctx, ExportOptions{Scope: "bogus"})
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestExportNothingToExport(t *testing.T) {
	r, _ := newTestRegistry(t, nil)
	_, err := r.ExportAccounts(context.Background(), ExportOptions{})
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestImportExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	r1, _ := newTestRegistry(t, nil)
	seedExportAccounts(t, r1)

	out, err := r1.ExportAccounts(ctx, ExportOptions{Format: FormatJSON, IncludePasswords: true})
	require.NoError(t, err)

	r2, _ := newTestRegistry(t, nil)
	added, skipped, err := r2.ImportAccounts(ctx, out)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Zero(t, skipped)

	accounts := r2.Accounts()
	require.Len(t, accounts, 2)
	assert.Equal(t, "pw-a", accounts[0].Password)
	assert.Equal(t, "Main", accounts[0].Alias)
}
