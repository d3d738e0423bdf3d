package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	redislib "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type changeNotifier interface {
	Publish(ctx context.Context, channel string, message any) error
	Subscribe(ctx context.Context, channels ...string) (*redislib.PubSub, error)
	CartChangesChannel(userID string) string
}

// Repository is the remote cart document store. Each write is announced on
// the user's Redis channel so other devices re-read the document.
type Repository struct {
	db     *gorm.DB
	notify changeNotifier
	logg   *logger.Logger
	now    func() time.Time
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB, notify changeNotifier, logg *logger.Logger) *Repository {
	return &Repository{db: db, notify: notify, logg: logg, now: time.Now}
}

// Load returns the user's cart lines, or an empty collection when no document exists.
func (r *Repository) Load(ctx context.Context, userID string) ([]Line, error) {
	var doc models.CartDocument
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []Line{}, nil
		}
		return nil, err
	}
	return FromItems(doc.Items), nil
}

// Save upserts the user's document, touching only items and updated_at.
func (r *Repository) Save(ctx context.Context, userID string, lines []Line) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user id is required")
	}
	doc := models.CartDocument{
		UserID:    userID,
		Items:     ToItems(lines),
		UpdatedAt: r.now().UTC(),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"items", "updated_at"}),
		}).
		Create(&doc).Error
	if err != nil {
		return err
	}

	if r.notify != nil {
		if err := r.notify.Publish(ctx, r.notify.CartChangesChannel(userID), userID); err != nil && r.logg != nil {
			logCtx := r.logg.WithField(r.logg.WithUserID(ctx, userID), "error", err.Error())
			r.logg.Warn(logCtx, "cart.change_publish_failed")
		}
	}
	return nil
}

// Subscribe delivers the current document, then re-reads and delivers it on
// every change notification until cancel is called or ctx ends.
func (r *Repository) Subscribe(ctx context.Context, userID string, onChange func([]Line), onError func(error)) (func(), error) {
	if r.notify == nil {
		return nil, fmt.Errorf("change notifier is required")
	}
	sub, err := r.notify.Subscribe(ctx, r.notify.CartChangesChannel(userID))
	if err != nil {
		return nil, err
	}
	lines, err := r.Load(ctx, userID)
	if err != nil {
		_ = sub.Close()
		return nil, err
	}
	onChange(lines)

	subCtx, cancel := context.WithCancel(ctx)
	go r.watch(subCtx, sub, userID, onChange, onError)
	return cancel, nil
}

func (r *Repository) watch(ctx context.Context, sub *redislib.PubSub, userID string, onChange func([]Line), onError func(error)) {
	defer sub.Close()
	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-messages:
			if !ok {
				if ctx.Err() == nil {
					onError(errors.New("cart change subscription closed"))
				}
				return
			}
			lines, err := r.Load(ctx, userID)
			if err != nil {
				if ctx.Err() == nil {
					onError(err)
				}
				return
			}
			onChange(lines)
		}
	}
}
