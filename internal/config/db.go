package config

// DB holds the database configuration settings.
type DB struct {
	Driver   string // sqlite, mysql or postgres
	Path     string // sqlite database file
	Extras   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	LogSQL   bool // send gorm statements to the logger
}
