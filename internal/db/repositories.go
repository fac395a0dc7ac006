package db

// Repositories provides access to all database repositories
type Repositories struct {
	Durations *DurationRepository
}

// NewRepositories creates a new repository collection
func NewRepositories(db *DB) *Repositories {
	return &Repositories{
		Durations: NewDurationRepository(db),
	}
}
