package models

import "time"

// StoredAccount is the full serialization used for local persistence.
// It includes credentials and session artifacts and must never be handed
// to user-facing export paths unless passwords were explicitly requested.
type StoredAccount struct {
	ID               string            `json:"id"`
	Username         string            `json:"username"`
	Password         string            `json:"password"`
	Alias            string            `json:"alias"`
	Description      string            `json:"description"`
	Group            string            `json:"group"`
	Valid            Validity          `json:"valid"`
	UserID           *int64            `json:"userId"`
	SecurityToken    string            `json:"securityToken"`
	CSRFToken        string            `json:"csrfToken"`
	LastUse          *time.Time        `json:"lastUse"`
	LastCheck        *time.Time        `json:"lastCheck"`
	AvatarURL        string            `json:"avatarUrl"`
	Presence         *Presence         `json:"presence"`
	Fields           map[string]string `json:"fields"`
	BrowserProfileID string            `json:"browserProfileId"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// ExportRecord is the export projection: everything a user may share,
// nothing they must not. No credentials, no session artifacts.
type ExportRecord struct {
	Username    string            `json:"username"`
	Alias       string            `json:"alias"`
	Description string            `json:"description"`
	Group       string            `json:"group"`
	Fields      map[string]string `json:"fields"`
}

// ToStored produces the full serialization of the account.
func (a *Account) ToStored() StoredAccount {
	return StoredAccount{
		ID:               a.ID,
		Username:         a.Username,
		Password:         a.Password,
		Alias:            a.Alias,
		Description:      a.Description,
		Group:            a.Group,
		Valid:            a.Valid,
		UserID:           a.UserID,
		SecurityToken:    a.SecurityToken,
		CSRFToken:        a.CSRFToken,
		LastUse:          a.LastUse,
		LastCheck:        a.LastCheck,
		AvatarURL:        a.AvatarURL,
		Presence:         a.Presence,
		Fields:           a.Fields,
		BrowserProfileID: a.BrowserProfileID,
		UpdatedAt:        a.UpdatedAt,
	}
}

// FromStored rebuilds an account from its full serialization.
func FromStored(s StoredAccount) *Account {
	fields := s.Fields
	if fields == nil {
		fields = map[string]string{}
	}
	group := s.Group
	if group == "" {
		group = DefaultGroup
	}
	return &Account{
		ID:               s.ID,
		Username:         s.Username,
		Password:         s.Password,
		Alias:            s.Alias,
		Description:      s.Description,
		Group:            group,
		Valid:            s.Valid,
		UserID:           s.UserID,
		SecurityToken:    s.SecurityToken,
		CSRFToken:        s.CSRFToken,
		LastUse:          s.LastUse,
		LastCheck:        s.LastCheck,
		AvatarURL:        s.AvatarURL,
		Presence:         s.Presence,
		Fields:           fields,
		BrowserProfileID: s.BrowserProfileID,
		UpdatedAt:        s.UpdatedAt,
	}
}

// ExportData produces the credential-free export projection.
func (a *Account) ExportData() ExportRecord {
	fields := make(map[string]string, len(a.Fields))
	for k, v := range a.Fields {
		fields[k] = v
	}
	return ExportRecord{
		Username:    a.Username,
		Alias:       a.Alias,
		Description: a.Description,
		Group:       a.Group,
		Fields:      fields,
	}
}
