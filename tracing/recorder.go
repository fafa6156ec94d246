// Package tracing stores per-round statistics of replays in SQLite.
package tracing

import (
	"database/sql"
	"fmt"
	"os"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/podsim/cyclemodel"
)

type roundEntry struct {
	runID string
	rec   cyclemodel.RoundRecord
}

// SQLiteRecorder is a hook that writes every completed round, and the final
// results of replays, into a SQLite database.
type SQLiteRecorder struct {
	*sql.DB

	dbName    string
	rounds    []roundEntry
	batchSize int
}

// NewSQLiteRecorder creates a recorder writing to path.sqlite3. An empty path
// picks a unique name.
func NewSQLiteRecorder(path string) *SQLiteRecorder {
	r := &SQLiteRecorder{
		dbName:    path,
		batchSize: 10000,
	}

	atexit.Register(func() { r.Flush() })

	return r
}

// Init creates the database file and its tables.
func (r *SQLiteRecorder) Init() {
	if r.dbName == "" {
		r.dbName = "podsim_" + xid.New().String()
	}

	filename := r.dbName + ".sqlite3"

	if _, err := os.Stat(filename); err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	r.DB = db

	r.mustExecute(`CREATE TABLE rounds (
	run_id       TEXT,
	round        INTEGER,
	start_cycle  INTEGER,
	end_cycle    INTEGER,
	stall_cycles INTEGER,
	x_used       INTEGER,
	w_used       INTEGER,
	p_used       INTEGER
);`)

	r.mustExecute(`CREATE TABLE results (
	run_id              TEXT PRIMARY KEY,
	no_cycles           INTEGER,
	warm_up_cycles      INTEGER,
	no_main_rounds      INTEGER,
	no_post_rounds      INTEGER,
	total_bytes         REAL,
	memory_stall_cycles INTEGER,
	failure             TEXT
);`)
}

// Filename returns the database file.
func (r *SQLiteRecorder) Filename() string {
	return r.dbName + ".sqlite3"
}

// Func buffers the round record of a RoundComplete hook.
func (r *SQLiteRecorder) Func(ctx sim.HookCtx) {
	if ctx.Pos != cyclemodel.HookPosRoundComplete {
		return
	}

	runID := ""
	if e, ok := ctx.Domain.(*cyclemodel.Engine); ok {
		runID = e.Result().RunID
	}

	r.rounds = append(r.rounds, roundEntry{
		runID: runID,
		rec:   ctx.Item.(cyclemodel.RoundRecord),
	})

	if len(r.rounds) >= r.batchSize {
		r.Flush()
	}
}

// RecordResult writes the summary of a finished replay.
func (r *SQLiteRecorder) RecordResult(res *cyclemodel.Result) {
	r.Flush()

	_, err := r.Exec(`INSERT INTO results VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID,
		res.NoCycles,
		res.WarmUpCycles,
		res.NoMainRounds,
		res.NoPostRounds,
		res.TotalBytes,
		res.MemoryStallCycles,
		string(res.Failure))
	if err != nil {
		panic(err)
	}
}

// Flush writes the buffered rounds in one transaction.
func (r *SQLiteRecorder) Flush() {
	if len(r.rounds) == 0 || r.DB == nil {
		return
	}

	r.mustExecute("BEGIN TRANSACTION")
	defer r.mustExecute("COMMIT TRANSACTION")

	stmt, err := r.Prepare(`INSERT INTO rounds VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		panic(err)
	}
	defer stmt.Close()

	for _, e := range r.rounds {
		_, err := stmt.Exec(
			e.runID,
			e.rec.Round,
			e.rec.StartCycle,
			e.rec.EndCycle,
			e.rec.StallCycles,
			e.rec.XUsed,
			e.rec.WUsed,
			e.rec.PUsed)
		if err != nil {
			panic(err)
		}
	}

	r.rounds = nil
}

func (r *SQLiteRecorder) mustExecute(query string) sql.Result {
	res, err := r.Exec(query)
	if err != nil {
		fmt.Printf("Failed to execute: %s\n", query)
		panic(err)
	}

	return res
}
