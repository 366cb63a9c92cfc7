package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"

	"chatroom-api/internal/storage/zapadapter"
)

var (
	ErrParticipantExists   = errors.New("participant already exists")
	ErrParticipantNotExist = errors.New("participant does not exist")
)

// Store defines fields used in db interaction processes
type Store struct {
	logger *zap.SugaredLogger
	db     *pgxpool.Pool
}

// NewStore sets provided zap.Logger via zapadapter to pgxpool.Pool and returns instance of Store struct
func NewStore(ctx context.Context, logger *zap.SugaredLogger, cfg Config, opts ...Option) (*Store, error) {
	config, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, err
	}
	config.ConnConfig.Logger = zapadapter.NewLogger(logger.Desugar())

	for _, opt := range opts {
		opt.apply(config)
	}

	pool, err := pgxpool.ConnectConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	return &Store{
		logger: logger,
		db:     pool,
	}, nil
}

// Close releases all connections held by the underlying pool
func (s *Store) Close() {
	s.db.Close()
}

func nowMillis() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}

// CreateParticipant inserts a participant with a fresh heartbeat and appends the
// broadcast status message announcing the join. Both writes happen in one
// transaction, so a room never sees a join notice for a participant that was
// not actually created. The primary key on name arbitrates duplicates.
func (s *Store) CreateParticipant(ctx context.Context, name string) error {
	s.logger.Debugf("Creating participant (%s)", name)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	// error handling can be omitted for rollback according docs
	// see https://pkg.go.dev/github.com/jackc/pgx/v4?tab=doc#hdr-Transactions or any source comment on Rollback
	defer tx.Rollback(context.Background())

	sql := "insert into participants (name, last_status) values ($1, $2)"
	_, err = tx.Exec(ctx, sql, name, nowMillis())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.UniqueViolation {
				return ErrParticipantExists
			}
		}
		return err
	}

	sql = `insert into messages ("from", "to", text, type, created_at) values ($1, $2, $3, $4, $5)`
	_, err = tx.Exec(ctx, sql, name, Broadcast, "entered the room", TypeStatus, time.Now())
	if err != nil {
		return err
	}

	err = tx.Commit(ctx)
	if err != nil {
		return err
	}

	s.logger.Debugf("Created participant (%s)", name)

	return nil
}

// Heartbeat refreshes the last_status timestamp of the named participant.
// A single conditional UPDATE keeps the operation atomic: there is no
// find-then-update window for the sweeper to race into.
func (s *Store) Heartbeat(ctx context.Context, name string) error {
	tag, err := s.db.Exec(ctx, "update participants set last_status = $2 where name = $1", name, nowMillis())
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrParticipantNotExist
	}

	return nil
}

// ParticipantExists reports ErrParticipantNotExist when no participant carries the provided name
func (s *Store) ParticipantExists(ctx context.Context, name string) error {
	var i int8
	err := s.db.QueryRow(ctx, "select 1 from participants where name = $1", name).Scan(&i)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrParticipantNotExist
		}
		return err
	}

	return nil
}

// Participants returns the current room snapshot in insertion order
func (s *Store) Participants(ctx context.Context) ([]Participant, error) {
	rows, err := s.db.Query(ctx, "select name, last_status from participants")
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	participants := make([]Participant, 0)
	for rows.Next() {
		var p Participant
		err = rows.Scan(&p.Name, &p.LastStatus)
		if err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return participants, nil
}

// CreateMessage appends a message to the log and returns its id
func (s *Store) CreateMessage(ctx context.Context, from, to, text, typ string) (int64, error) {
	s.logger.Debugf("Creating %s from (%s) to (%s)", typ, from, to)

	var id int64
	sql := `insert into messages ("from", "to", text, type, created_at) values ($1, $2, $3, $4, $5) returning id`
	err := s.db.QueryRow(ctx, sql, from, to, text, typ, time.Now()).Scan(&id)
	if err != nil {
		return 0, err
	}

	return id, nil
}

// MessagesFor returns messages the named participant is entitled to see:
// broadcasts, messages addressed to them and messages they sent, in log
// insertion order. A positive limit keeps only the most recent limit entries
// (still ascending); limit zero returns the whole filtered log.
func (s *Store) MessagesFor(ctx context.Context, name string, limit int) ([]Message, error) {
	s.logger.Debugf("Retrieving messages for participant (%s) with limit %d", name, limit)

	sql := `select id, "from", "to", text, type, created_at
			  from messages
			 where "to" = $1 or "to" = $2 or "from" = $2
			 order by id`
	args := []interface{}{Broadcast, name}

	if limit > 0 {
		sql = `select id, "from", "to", text, type, created_at
				 from (select id, "from", "to", text, type, created_at
						 from messages
						where "to" = $1 or "to" = $2 or "from" = $2
						order by id desc
						limit $3) last
				order by id`
		args = append(args, limit)
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		var m Message
		var createdAt time.Time
		err = rows.Scan(&m.ID, &m.From, &m.To, &m.Text, &m.Type, &createdAt)
		if err != nil {
			return nil, err
		}
		m.Time = createdAt.Format(timeLayout)
		messages = append(messages, m)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	s.logger.Debugf("Retrieved %d messages", len(messages))

	return messages, nil
}

// StaleParticipants returns names whose last_status is older than cutoff (epoch milliseconds)
func (s *Store) StaleParticipants(ctx context.Context, cutoff int64) ([]string, error) {
	rows, err := s.db.Query(ctx, "select name from participants where last_status < $1", cutoff)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		err = rows.Scan(&name)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return names, nil
}

// EvictParticipant deletes the named participant provided it is still stale
// against cutoff. A heartbeat landing between snapshot and delete bumps
// last_status past cutoff and the delete matches no row, so the participant
// survives. Reports whether a row was actually removed.
func (s *Store) EvictParticipant(ctx context.Context, name string, cutoff int64) (bool, error) {
	tag, err := s.db.Exec(ctx, "delete from participants where name = $1 and last_status < $2", name, cutoff)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}

// CreateDepartureMessages bulk-inserts one broadcast status message per evicted participant
func (s *Store) CreateDepartureMessages(ctx context.Context, names []string) error {
	now := time.Now()

	rows := make([]messageRow, 0, len(names))
	for _, name := range names {
		rows = append(rows, messageRow{
			from:      name,
			to:        Broadcast,
			text:      "left the room",
			typ:       TypeStatus,
			createdAt: now,
		})
	}

	_, err := s.db.CopyFrom(ctx, pgx.Identifier{"messages"}, []string{"from", "to", "text", "type", "created_at"}, copyFromMessages(rows))
	return err
}
