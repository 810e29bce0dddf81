package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoredRoundTrip(t *testing.T) {
	userID := int64(42)
	lastUse := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a := New(Draft{Username: "alice", Password: "secret", Alias: "main", Group: "Farm"})
	a.Valid = ValidityValid
	a.UserID = &userID
	a.SecurityToken = "tok"
	a.CSRFToken = "csrf"
	a.LastUse = &lastUse
	a.Presence = &Presence{UserPresenceType: 2, LastLocation: "SomeGame", UserID: 42}
	a.Fields["note"] = "farm alt"

	data, err := json.Marshal(a.ToStored())
	require.NoError(t, err)

	var s StoredAccount
	require.NoError(t, json.Unmarshal(data, &s))
	got := FromStored(s)

	if diff := cmp.Diff(a, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestValidityJSON(t *testing.T) {
	for raw, want := range map[string]Validity{
		"null":  ValidityUnknown,
		"true":  ValidityValid,
		"false": ValidityInvalid,
	} {
		var v Validity
		require.NoError(t, json.Unmarshal([]byte(raw), &v))
		assert.Equal(t, want, v, raw)

		out, err := json.Marshal(want)
		require.NoError(t, err)
		assert.Equal(t, raw, string(out))
	}

	var v Validity
	assert.Error(t, json.Unmarshal([]byte(`"yes"`), &v))
}

func TestExportData_NeverLeaksCredentials(t *testing.T) {
	a := New(Draft{Username: "alice", Password: "secret", SecurityToken: "tok"})
	a.CSRFToken = "csrf"

	data, err := json.Marshal(a.ExportData())
	require.NoError(t, err)

	out := string(data)
	assert.NotContains(t, out, "secret")
	assert.NotContains(t, out, "tok")
	assert.False(t, strings.Contains(out, "password"), "no password key in projection")
	assert.Contains(t, out, "alice")
}

func TestExportData_CopiesFields(t *testing.T) {
	a := New(Draft{Username: "alice", Password: "pw"})
	a.Fields["k"] = "v"

	rec := a.ExportData()
	rec.Fields["k"] = "changed"

	assert.Equal(t, "v", a.Fields["k"], "projection must not alias entity state")
}
