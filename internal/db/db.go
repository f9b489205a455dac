// Package `db` manages the job journal and auth database.
//
// The in-memory queue is capacity-bounded and never reuses slots, so the
// journal is the only place the full lifetime history of a queue can be
// read back from.
package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"golang.org/x/crypto/bcrypt"
)

// Journal events for a job's lifecycle.
const (
	EventSubmitted = "submitted"
	EventAdvanced  = "advanced"
	EventCancelled = "cancelled"
	EventReleased  = "released"
)

// Represents a connection to the database. Used for database operations.
type Database struct {
	db *sql.DB
}

// One journaled job event.
type Event struct {
	JobID    int64
	Label    string
	Deadline time.Time
	Event    string
	At       time.Time
}

// Opens a connection to the database, creating it and initializing the tables
// if necessary.
func Init(path string) (*Database, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("db: Couldn't connect to database (%w).", err)
	}

	_, err = db.Exec(`
    CREATE TABLE IF NOT EXISTS auth(
        username TEXT PRIMARY KEY,
        password TEXT NOT NULL
    )`)
	if err != nil {
		return nil, fmt.Errorf("db: Couldn't create auth table (%w).", err)
	}

	_, err = db.Exec(`
    CREATE TABLE IF NOT EXISTS journal(
        entry_id INTEGER PRIMARY KEY,
        job_id   INTEGER NOT NULL,
        label    TEXT NOT NULL,
        deadline INTEGER NOT NULL,
        event    TEXT NOT NULL,
        at       INTEGER NOT NULL
    )`)
	if err != nil {
		return nil, fmt.Errorf("db: Couldn't create journal table (%w).", err)
	}

	return &Database{db: db}, nil
}

// Records one job event in the journal.
func (d *Database) Record(jobID int64, label string, deadline time.Time, event string) error {
	_, err := d.db.Exec(`
    INSERT INTO journal
        (job_id, label, deadline, event, at)
    VALUES
        (?, ?, ?, ?, ?)`,
		jobID, label, deadline.Unix(), event, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("db: Couldn't journal event (%w).", err)
	}
	return nil
}

// History returns every journaled event for the passed job, oldest first.
func (d *Database) History(jobID int64) ([]Event, error) {
	rows, err := d.db.Query(`
    SELECT job_id, label, deadline, event, at
    FROM journal
    WHERE job_id = ?
    ORDER BY entry_id`, jobID)
	if err != nil {
		return nil, fmt.Errorf("db: Couldn't query journal (%w).", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var deadline, at int64
		if err := rows.Scan(&ev.JobID, &ev.Label, &deadline, &ev.Event, &at); err != nil {
			return events, fmt.Errorf("db: Error scanning row (%w).", err)
		}
		ev.Deadline = time.Unix(deadline, 0)
		ev.At = time.Unix(at, 0)
		events = append(events, ev)
	}
	return events, nil
}

// Adds a new user that can authenticate for privileged queue operations.
func (d *Database) AddAuth(username string, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("db: Error hashing password (%w).", err)
	}
	_, err = d.db.Exec(`
    INSERT INTO auth
        (username, password)
    VALUES
        (?, ?)`,
		username, string(hash))
	if err != nil {
		return fmt.Errorf("db: Couldn't add user (%w).", err)
	}
	return nil
}

// Checks whether a given username and password authenticate to a user.
func (d *Database) CheckAuth(username string, password string) (bool, error) {
	row := d.db.QueryRow("SELECT password FROM auth WHERE username = ?", username)

	var hash string
	if err := row.Scan(&hash); err != nil {
		if err == sql.ErrNoRows {
			// user doesn't exist
			return false, nil
		}
		return false, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return false, nil
	}
	return true, nil
}

// Removes a user from the auth table.
func (d *Database) RemoveAuth(username string) error {
	if _, err := d.db.Exec("DELETE FROM auth WHERE username = ?", username); err != nil {
		return fmt.Errorf("db: Couldn't remove user (%w).", err)
	}
	return nil
}

// Closes the database connection.
func (d *Database) Close() error {
	if err := d.db.Close(); err != nil {
		return fmt.Errorf("db: Error closing database (%w).", err)
	}
	return nil
}
