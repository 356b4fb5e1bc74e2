package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	pkgerrors "scribe/pkg/errors"
)

const usageSchema = `
CREATE TABLE IF NOT EXISTS ai_usage (
	id            uuid PRIMARY KEY,
	provider      varchar(50)  NOT NULL,
	action        varchar(100) NOT NULL,
	model         varchar(100) NOT NULL,
	input_tokens  bigint       NOT NULL DEFAULT 0,
	output_tokens bigint       NOT NULL DEFAULT 0,
	total_tokens  bigint       NOT NULL DEFAULT 0,
	cost          numeric(12,6) NOT NULL DEFAULT 0,
	user_id       varchar(100),
	subject_id    varchar(100),
	metadata      jsonb        NOT NULL DEFAULT '{}',
	created_at    timestamptz  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_ai_usage_provider   ON ai_usage (provider);
CREATE INDEX IF NOT EXISTS idx_ai_usage_action     ON ai_usage (action);
CREATE INDEX IF NOT EXISTS idx_ai_usage_user_id    ON ai_usage (user_id);
CREATE INDEX IF NOT EXISTS idx_ai_usage_created_at ON ai_usage (created_at);
`

// EnsureSchema creates the ledger table and its indexes when missing.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, usageSchema); err != nil {
		return pkgerrors.Wrap(err, "failed to ensure usage schema")
	}
	return nil
}
