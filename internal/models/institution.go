package models

// Institution is a school registered in the platform.
type Institution struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Campus is a site ("sede") belonging to an institution.
type Campus struct {
	ID            string `db:"id" json:"id"`
	InstitutionID string `db:"institution_id" json:"institution_id"`
	Name          string `db:"name" json:"name"`
}
