package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/machikado/market/internal/conversation/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, conversation *domain.Conversation) error {
	return db.WithContext(ctx).Create(conversation).Error
}

func (r *repo) FindByKey(ctx context.Context, db *gorm.DB, key domain.Key) (*domain.Conversation, error) {
	return r.find(ctx, db, key, false)
}

func (r *repo) FindByKeyForUpdate(ctx context.Context, db *gorm.DB, key domain.Key) (*domain.Conversation, error) {
	return r.find(ctx, db, key, true)
}

func (r *repo) find(ctx context.Context, db *gorm.DB, key domain.Key, locked bool) (*domain.Conversation, error) {
	stmt := db.WithContext(ctx).
		Where("product_id = ? AND user_id = ?", key.ProductID, key.UserID)
	if key.TokenID != nil {
		stmt = stmt.Where("token_id = ?", *key.TokenID)
	} else {
		stmt = stmt.Where("token_id IS NULL")
	}
	if locked && stmt.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var conversation domain.Conversation
	err := stmt.First(&conversation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

func (r *repo) UpdateCounters(ctx context.Context, db *gorm.DB, conversation *domain.Conversation) error {
	if conversation == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE conversations
		 SET support_unread_count = ?, buyer_unread_count = ?, updated_at = ?
		 WHERE id = ?`,
		conversation.SupportUnreadCount,
		conversation.BuyerUnreadCount,
		conversation.UpdatedAt,
		conversation.ID,
	).Error
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]domain.Conversation, error) {
	var items []domain.Conversation
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListByProducts(ctx context.Context, db *gorm.DB, productIDs []snowflake.ID) ([]domain.Conversation, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	var items []domain.Conversation
	err := db.WithContext(ctx).
		Where("product_id IN ?", productIDs).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CreateMessage(ctx context.Context, db *gorm.DB, message *domain.Message) error {
	return db.WithContext(ctx).Create(message).Error
}

func (r *repo) ListMessages(ctx context.Context, db *gorm.DB, conversationID snowflake.ID) ([]domain.Message, error) {
	var items []domain.Message
	err := db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) SearchMessages(ctx context.Context, db *gorm.DB, conversationID snowflake.ID, substring string, limit int) ([]domain.Message, error) {
	pattern := "%" + escapeLike(strings.ToLower(substring)) + "%"

	stmt := db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Where(`LOWER(body) LIKE ? ESCAPE '\'`, pattern).
		Order("created_at ASC, id ASC")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}

	var items []domain.Message
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CountBySender(ctx context.Context, db *gorm.DB, conversationID snowflake.ID, role domain.SenderRole) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("conversation_id = ? AND sender_role = ?", conversationID, role).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
