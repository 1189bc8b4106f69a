package storage

import (
	"context"
	"fmt"
	"strings"
)

// schemaTemplate — схема ядра. {{ID}} и {{TS}} подставляются по диалекту,
// остальной SQL общий для Postgres и SQLite.
const schemaTemplate = `
CREATE TABLE IF NOT EXISTS app_user (
    id          TEXT PRIMARY KEY,
    username    TEXT NOT NULL UNIQUE,
    created_at  {{TS}} NOT NULL
);

CREATE TABLE IF NOT EXISTS post (
    id          {{ID}},
    parent_id   BIGINT REFERENCES post(id),
    author_id   TEXT NOT NULL REFERENCES app_user(id),
    content     TEXT NOT NULL,
    created_at  {{TS}} NOT NULL,
    deleted_at  {{TS}},
    is_private  BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_post_parent ON post(parent_id);

CREATE TABLE IF NOT EXISTS lineage (
    ancestor_id    BIGINT NOT NULL REFERENCES post(id),
    descendant_id  BIGINT NOT NULL REFERENCES post(id),
    separation     INTEGER NOT NULL CHECK (separation >= 1),
    PRIMARY KEY (ancestor_id, descendant_id)
);

CREATE INDEX IF NOT EXISTS idx_lineage_descendant ON lineage(descendant_id);

CREATE TABLE IF NOT EXISTS vote_event (
    vote_event_id        {{ID}},
    user_id              TEXT NOT NULL REFERENCES app_user(id),
    post_id              BIGINT NOT NULL REFERENCES post(id),
    parent_id            BIGINT,
    vote                 INTEGER NOT NULL CHECK (vote IN (-1, 0, 1)),
    vote_event_time      {{TS}} NOT NULL,
    critical_comment_id  BIGINT,
    is_informed          BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_vote_event_user_post ON vote_event(user_id, post_id, vote_event_id);

CREATE TABLE IF NOT EXISTS score (
    vote_event_id    BIGINT NOT NULL,
    vote_event_time  {{TS}} NOT NULL,
    post_id          BIGINT NOT NULL,
    o                DOUBLE PRECISION NOT NULL,
    o_count          INTEGER NOT NULL,
    o_size           INTEGER NOT NULL,
    p                DOUBLE PRECISION NOT NULL,
    score            DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (vote_event_id, post_id)
);

CREATE INDEX IF NOT EXISTS idx_score_post ON score(post_id, vote_event_id);

CREATE TABLE IF NOT EXISTS effect (
    vote_event_id    BIGINT NOT NULL,
    vote_event_time  {{TS}} NOT NULL,
    post_id          BIGINT NOT NULL,
    comment_id       BIGINT NOT NULL,
    p                DOUBLE PRECISION NOT NULL,
    p_count          INTEGER NOT NULL,
    p_size           INTEGER NOT NULL,
    q                DOUBLE PRECISION NOT NULL,
    q_count          INTEGER NOT NULL,
    q_size           INTEGER NOT NULL,
    r                DOUBLE PRECISION NOT NULL,
    weight           DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (vote_event_id, post_id, comment_id)
);

CREATE INDEX IF NOT EXISTS idx_effect_pair ON effect(post_id, comment_id, vote_event_id);
`

// Schema возвращает DDL-инструкции для диалекта по одной на элемент.
func Schema(dialect Dialect) []string {
	idType := "INTEGER PRIMARY KEY"
	tsType := "TIMESTAMP"
	if dialect == DialectPostgres {
		idType = "BIGSERIAL PRIMARY KEY"
		tsType = "TIMESTAMPTZ"
	}
	ddl := strings.NewReplacer("{{ID}}", idType, "{{TS}}", tsType).Replace(schemaTemplate)

	var stmts []string
	for _, stmt := range strings.Split(ddl, ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}

// Migrate создаёт таблицы и индексы, если их ещё нет. Повторный вызов безопасен.
func (db *DB) Migrate(ctx context.Context) error {
	return db.WithTx(ctx, func(q *Queries) error {
		for _, stmt := range Schema(db.Dialect) {
			if _, err := q.q.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
		return nil
	})
}
