package repository

import "github.com/iliyamo/meeting-admin/internal/auth"

// Scope restricts meeting queries to the rows an actor may observe. It is
// applied uniformly to listing, single-record fetch, update, delete and
// aggregate queries so a restricted actor can never see a row — or a count
// derived from rows — outside their ownership.
//
// IncludeArchived is an explicit opt-in: soft-deleted rows are invisible by
// default everywhere.
type Scope struct {
	ActorID         uint64
	Restricted      bool
	IncludeArchived bool
}

// ScopeFor derives the query scope from an authenticated identity. Holders
// of the regular USER role are restricted to their own rows; everyone else
// is unrestricted.
func ScopeFor(id auth.Identity) Scope {
	return Scope{ActorID: id.ID, Restricted: auth.HasRole(id, auth.RoleUser)}
}

// WithArchived returns a copy of the scope that also matches soft-deleted
// rows.
func (sc Scope) WithArchived() Scope {
	sc.IncludeArchived = true
	return sc
}

// apply appends the scope's conditions to a WHERE clause under construction.
// The alias is the table alias used for the meetings table in the query.
func (sc Scope) apply(alias string, conds []string, args []any) ([]string, []any) {
	if !sc.IncludeArchived {
		conds = append(conds, alias+".deleted_at IS NULL")
	}
	if sc.Restricted {
		conds = append(conds, alias+".user_id = ?")
		args = append(args, sc.ActorID)
	}
	return conds, args
}
