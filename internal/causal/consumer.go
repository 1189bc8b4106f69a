package causal

import (
	"context"
	"fmt"
	"log/slog"

	"discuss_go/internal/metrics"
	"discuss_go/models"
	"discuss_go/pkg/storage"
)

// Result — итог сохранения ответа движка.
type Result struct {
	Scores       int
	Effects      int
	Duplicates   int
	MissingScore bool
}

// Consumer сохраняет ответы движка. Все записи одного ответа вставляются
// одной транзакцией; повторная доставка поглощается ON CONFLICT DO NOTHING.
type Consumer struct {
	db      *storage.DB
	metrics *metrics.Causal
	log     *slog.Logger
}

func NewConsumer(db *storage.DB, m *metrics.Causal, log *slog.Logger) *Consumer {
	if log == nil {
		log = slog.Default()
	}
	return &Consumer{db: db, metrics: m, log: log}
}

// Apply разбирает ответ движка на событие v и сохраняет его. Ошибка разбора
// оборачивает ErrMalformedOutput, в базу при этом ничего не пишется.
func (c *Consumer) Apply(ctx context.Context, v models.VoteEvent, raw []byte) (Result, error) {
	out, err := ParseOutput(raw)
	if err != nil {
		c.log.Error("[CAUSAL ERROR] engine output rejected", "vote_event_id", v.VoteEventID, "err", err)
		return Result{}, err
	}

	var res Result
	err = c.db.WithTx(ctx, func(q *storage.Queries) error {
		res = Result{}
		for _, s := range out.Scores {
			inserted, err := q.InsertScore(ctx, s)
			if err != nil {
				return fmt.Errorf("insert score (event %d, post %d): %w", s.VoteEventID, s.PostID, err)
			}
			if inserted {
				res.Scores++
			} else {
				res.Duplicates++
			}
		}
		for _, e := range out.Effects {
			inserted, err := q.InsertEffect(ctx, e)
			if err != nil {
				return fmt.Errorf("insert effect (event %d, %d->%d): %w", e.VoteEventID, e.PostID, e.CommentID, err)
			}
			if inserted {
				res.Effects++
			} else {
				res.Duplicates++
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if !out.HasScoreFor(v) {
		res.MissingScore = true
		c.log.Warn("[CAUSAL WARN] engine returned no score for voted post",
			"vote_event_id", v.VoteEventID, "post_id", v.PostID,
			"scores", len(out.Scores), "effects", len(out.Effects))
	}
	c.count(res)
	return res, nil
}

func (c *Consumer) count(res Result) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordsTotal.WithLabelValues("score").Add(float64(res.Scores))
	c.metrics.RecordsTotal.WithLabelValues("effect").Add(float64(res.Effects))
	c.metrics.DuplicatesTotal.Add(float64(res.Duplicates))
	if res.MissingScore {
		c.metrics.MissingScoreTotal.Inc()
	}
}
