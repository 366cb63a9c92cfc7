package storage

import (
	"time"

	"github.com/jackc/pgx/v4"
)

type messageRow struct {
	from, to, text, typ string
	createdAt           time.Time
}

type messageBulk struct {
	rows []messageRow
	idx  int
}

func (mr messageRow) toInterface() []interface{} {
	return []interface{}{mr.from, mr.to, mr.text, mr.typ, mr.createdAt}
}

func copyFromMessages(rows []messageRow) pgx.CopyFromSource {
	return &messageBulk{
		rows: rows,
		idx:  -1,
	}
}

func (mb *messageBulk) Next() bool {
	mb.idx++
	return mb.idx < len(mb.rows)
}

func (mb *messageBulk) Values() ([]interface{}, error) {
	return mb.rows[mb.idx].toInterface(), nil
}

func (mb *messageBulk) Err() error {
	return nil
}
