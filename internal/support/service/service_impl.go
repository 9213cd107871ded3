package service

import (
	"context"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/machikado/market/internal/actorcontext"
	"github.com/machikado/market/internal/authorization"
	"github.com/machikado/market/internal/config"
	conversationdomain "github.com/machikado/market/internal/conversation/domain"
	formdomain "github.com/machikado/market/internal/form/domain"
	memodomain "github.com/machikado/market/internal/memo/domain"
	ownershipdomain "github.com/machikado/market/internal/ownership/domain"
	productdomain "github.com/machikado/market/internal/product/domain"
	referencedomain "github.com/machikado/market/internal/reference/domain"
	"github.com/machikado/market/internal/support/domain"
	transferdomain "github.com/machikado/market/internal/transfer/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB               *gorm.DB
	Log              *zap.Logger
	OwnershipRepo    ownershipdomain.Repository
	TransferRepo     transferdomain.Repository
	ProductRepo      productdomain.Repository
	ReferenceRepo    referencedomain.Repository
	ConversationRepo conversationdomain.Repository
	MemoRepo         memodomain.Repository
	FormRepo         formdomain.Repository
	Authz            authorization.Service
	Holder           *config.SupportConfigHolder
}

type Service struct {
	db               *gorm.DB
	log              *zap.Logger
	ownershipRepo    ownershipdomain.Repository
	transferRepo     transferdomain.Repository
	productRepo      productdomain.Repository
	referenceRepo    referencedomain.Repository
	conversationRepo conversationdomain.Repository
	memoRepo         memodomain.Repository
	formRepo         formdomain.Repository
	authz            authorization.Service
	holder           *config.SupportConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:               p.DB,
		log:              p.Log.Named("support.service"),
		ownershipRepo:    p.OwnershipRepo,
		transferRepo:     p.TransferRepo,
		productRepo:      p.ProductRepo,
		referenceRepo:    p.ReferenceRepo,
		conversationRepo: p.ConversationRepo,
		memoRepo:         p.MemoRepo,
		formRepo:         p.FormRepo,
		authz:            p.Authz,
		holder:           p.Holder,
	}
}

type threadKey struct {
	productID snowflake.ID
	tokenID   int64
	userID    snowflake.ID
}

func (s *Service) ListPurchasers(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	actor, ok := actorcontext.FromContext(ctx)
	if !ok || !actor.Role.IsStaff() {
		return nil, domain.ErrUnauthorized
	}
	if err := s.authz.Authorize(ctx, actor, authorization.ObjectSupportConsole, authorization.ActionView); err != nil {
		return nil, domain.ErrUnauthorized
	}

	// Support staff only ever see their own town regardless of the filter.
	if actor.Role == actorcontext.RoleSupport && actor.TownID != 0 {
		town := actor.TownID.String()
		req.Filter.TownID = &town
	}

	if req.Page <= 0 {
		req.Page = 1
	}
	if _, ok := domain.ParseSortField(string(req.Sort.Field)); !ok {
		return nil, domain.ErrInvalidSort
	}
	if req.Sort.Field == "" {
		req.Sort.Field = domain.SortPaymentDate
	}

	records, err := s.loadOwnershipRecords(ctx, req.Filter)
	if err != nil {
		return nil, err
	}

	productIDs := distinctProductIDs(records)
	products, err := s.loadProducts(ctx, productIDs, req.Filter)
	if err != nil {
		return nil, err
	}

	// Drop records whose product fell out of the town/business filter. Without
	// a scope filter, records whose product row is gone stay in and render
	// placeholder names, like missing towns and businesses do.
	scoped := req.Filter.TownID != nil || req.Filter.BusinessID != nil
	filtered := records[:0]
	for _, rec := range records {
		if _, ok := products[rec.ProductID]; ok || !scoped {
			filtered = append(filtered, rec)
		}
	}
	records = filtered
	scopedIDs := distinctProductIDs(records)

	owners, err := s.loadOwners(ctx, scopedIDs)
	if err != nil {
		return nil, err
	}
	towns, businesses, err := s.loadRegistry(ctx, products)
	if err != nil {
		return nil, err
	}
	unread, err := s.loadUnreadCounts(ctx, scopedIDs)
	if err != nil {
		return nil, err
	}
	memos, err := s.loadMemos(ctx, scopedIDs)
	if err != nil {
		return nil, err
	}
	submitted, err := s.formRepo.SubmittedKeys(ctx, s.db, scopedIDs)
	if err != nil {
		return nil, err
	}

	cfg := s.holder.Get()
	rows := s.buildRows(records, products, owners, towns, businesses, unread, memos, submitted, cfg)
	rows = applyRowFilters(rows, req.Filter)
	sortRows(rows, req.Sort)

	total := len(rows)
	start := (req.Page - 1) * cfg.PageSize
	if start > total {
		start = total
	}
	end := start + cfg.PageSize
	if end > total {
		end = total
	}

	return &domain.ListResponse{
		Rows:     rows[start:end],
		Total:    total,
		Page:     req.Page,
		PageSize: cfg.PageSize,
	}, nil
}

func (s *Service) loadOwnershipRecords(ctx context.Context, filter domain.Filter) ([]ownershipdomain.OwnershipRecord, error) {
	ownFilter := ownershipdomain.ListFilter{
		PaidFrom: filter.PaidFrom,
		PaidTo:   filter.PaidTo,
	}
	if filter.ProductID != nil {
		id, err := snowflake.ParseString(strings.TrimSpace(*filter.ProductID))
		if err != nil {
			return nil, nil
		}
		ownFilter.ProductID = &id
	}

	records, err := s.ownershipRepo.List(ctx, s.db, ownFilter)
	if err != nil {
		return nil, err
	}

	active := records[:0]
	for _, rec := range records {
		if rec.Status != ownershipdomain.StatusCanceled {
			active = append(active, rec)
		}
	}
	return active, nil
}

func (s *Service) loadProducts(ctx context.Context, ids []snowflake.ID, filter domain.Filter) (map[snowflake.ID]productdomain.Product, error) {
	items, err := s.productRepo.FindByIDs(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}

	var townID, businessID snowflake.ID
	if filter.TownID != nil {
		townID, _ = snowflake.ParseString(strings.TrimSpace(*filter.TownID))
	}
	if filter.BusinessID != nil {
		businessID, _ = snowflake.ParseString(strings.TrimSpace(*filter.BusinessID))
	}

	products := make(map[snowflake.ID]productdomain.Product, len(items))
	for _, p := range items {
		if townID != 0 && p.TownID != townID {
			continue
		}
		if businessID != 0 && p.BusinessID != businessID {
			continue
		}
		products[p.ID] = p
	}
	return products, nil
}

func (s *Service) loadOwners(ctx context.Context, productIDs []snowflake.ID) (map[threadKey]transferdomain.AssetTransferRecord, error) {
	if len(productIDs) == 0 {
		return map[threadKey]transferdomain.AssetTransferRecord{}, nil
	}
	items, err := s.transferRepo.ListOwners(ctx, s.db, productIDs)
	if err != nil {
		return nil, err
	}
	owners := make(map[threadKey]transferdomain.AssetTransferRecord, len(items))
	for _, item := range items {
		owners[threadKey{productID: item.ProductID, tokenID: item.TokenID}] = item
	}
	return owners, nil
}

func (s *Service) loadRegistry(ctx context.Context, products map[snowflake.ID]productdomain.Product) (map[snowflake.ID]string, map[snowflake.ID]string, error) {
	towns := make(map[snowflake.ID]string)
	businesses := make(map[snowflake.ID]string)
	for _, p := range products {
		if _, seen := towns[p.TownID]; !seen {
			town, err := s.referenceRepo.FindTown(ctx, p.TownID)
			if err != nil {
				return nil, nil, err
			}
			if town != nil {
				towns[p.TownID] = town.Name
			}
		}
		if _, seen := businesses[p.BusinessID]; !seen {
			business, err := s.referenceRepo.FindBusiness(ctx, p.BusinessID)
			if err != nil {
				return nil, nil, err
			}
			if business != nil {
				businesses[p.BusinessID] = business.Name
			}
		}
	}
	return towns, businesses, nil
}

func (s *Service) loadUnreadCounts(ctx context.Context, productIDs []snowflake.ID) (map[threadKey]int, error) {
	conversations, err := s.conversationRepo.ListByProducts(ctx, s.db, productIDs)
	if err != nil {
		return nil, err
	}
	unread := make(map[threadKey]int, len(conversations))
	for _, c := range conversations {
		if c.TokenID == nil {
			continue
		}
		unread[threadKey{productID: c.ProductID, tokenID: *c.TokenID, userID: c.UserID}] = c.SupportUnreadCount
	}
	return unread, nil
}

func (s *Service) loadMemos(ctx context.Context, productIDs []snowflake.ID) (map[threadKey]string, error) {
	items, err := s.memoRepo.ListByProducts(ctx, s.db, productIDs)
	if err != nil {
		return nil, err
	}
	memos := make(map[threadKey]string, len(items))
	for _, m := range items {
		memos[threadKey{productID: m.ProductID, tokenID: m.TokenID, userID: m.UserID}] = m.Body
	}
	return memos, nil
}

func (s *Service) buildRows(
	records []ownershipdomain.OwnershipRecord,
	products map[snowflake.ID]productdomain.Product,
	owners map[threadKey]transferdomain.AssetTransferRecord,
	towns map[snowflake.ID]string,
	businesses map[snowflake.ID]string,
	unread map[threadKey]int,
	memos map[threadKey]string,
	submitted map[formdomain.SubmissionKey]struct{},
	cfg config.SupportConfig,
) []domain.Row {
	rows := make([]domain.Row, 0, len(records))

	decorate := func(row domain.Row, productID, userID snowflake.ID) domain.Row {
		if product, ok := products[productID]; ok {
			if name, ok := towns[product.TownID]; ok {
				row.TownName = &name
			}
			if name, ok := businesses[product.BusinessID]; ok {
				row.BusinessName = &name
			}
			productName := product.Name
			row.ProductName = &productName
		}

		key := threadKey{productID: productID, tokenID: row.TokenID, userID: userID}
		row.UnreadCount = unread[key]
		row.Escalated = cfg.UnreadEscalationCount > 0 && row.UnreadCount >= cfg.UnreadEscalationCount
		if body, ok := memos[key]; ok {
			row.Memo = &body
		}
		_, row.Submitted = submitted[formdomain.SubmissionKey{
			UserID:    userID,
			ProductID: productID,
			TokenID:   row.TokenID,
		}]
		return row
	}

	for _, rec := range records {
		purchaser := domain.Row{
			ProductID:   rec.ProductID.String(),
			TokenID:     rec.TokenID,
			Perspective: domain.PerspectivePurchaser,
			UserID:      rec.UserID.String(),
			Status:      rec.Status,
			AdminStatus: rec.AdminStatus,
			Attributes:  rec.Attributes,
			PaymentDate: rec.CreatedAt,
		}
		rows = append(rows, decorate(purchaser, rec.ProductID, rec.UserID))

		owner, ok := owners[threadKey{productID: rec.ProductID, tokenID: rec.TokenID}]
		if !ok || owner.HolderID == rec.UserID {
			continue
		}
		holder := domain.Row{
			ProductID:   rec.ProductID.String(),
			TokenID:     rec.TokenID,
			Perspective: domain.PerspectiveHolder,
			UserID:      owner.HolderID.String(),
			Status:      rec.Status,
			AdminStatus: owner.AdminStatus,
			Attributes:  owner.Attributes,
			PaymentDate: rec.CreatedAt,
		}
		rows = append(rows, decorate(holder, rec.ProductID, owner.HolderID))
	}
	return rows
}

func applyRowFilters(rows []domain.Row, filter domain.Filter) []domain.Row {
	if filter.AdminStatus == nil && filter.Submitted == nil {
		return rows
	}
	kept := rows[:0]
	for _, row := range rows {
		if filter.AdminStatus != nil && row.AdminStatus != *filter.AdminStatus {
			continue
		}
		if filter.Submitted != nil && row.Submitted != *filter.Submitted {
			continue
		}
		kept = append(kept, row)
	}
	return kept
}

// sortRows orders rows by the requested field. The sort is stable, so ties keep
// insertion order, which follows ownership record creation.
func sortRows(rows []domain.Row, by domain.Sort) {
	less := lessFunc(by.Field)
	sort.SliceStable(rows, func(i, j int) bool {
		if by.Descending {
			return less(rows[j], rows[i])
		}
		return less(rows[i], rows[j])
	})
}

func lessFunc(field domain.SortField) func(a, b domain.Row) bool {
	switch field {
	case domain.SortTownName:
		return func(a, b domain.Row) bool { return lessName(a.TownName, b.TownName) }
	case domain.SortBusinessName:
		return func(a, b domain.Row) bool { return lessName(a.BusinessName, b.BusinessName) }
	case domain.SortProductName:
		return func(a, b domain.Row) bool { return lessName(a.ProductName, b.ProductName) }
	case domain.SortAdminStatus:
		return func(a, b domain.Row) bool {
			return ownershipdomain.AdminStatusRank(a.AdminStatus) < ownershipdomain.AdminStatusRank(b.AdminStatus)
		}
	case domain.SortSubmitted:
		return func(a, b domain.Row) bool { return !a.Submitted && b.Submitted }
	default:
		return func(a, b domain.Row) bool { return a.PaymentDate.Before(b.PaymentDate) }
	}
}

// lessName sorts placeholders after named rows.
func lessName(a, b *string) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return strings.ToLower(*a) < strings.ToLower(*b)
}

func distinctProductIDs(records []ownershipdomain.OwnershipRecord) []snowflake.ID {
	seen := make(map[snowflake.ID]struct{}, len(records))
	ids := make([]snowflake.ID, 0, len(records))
	for _, rec := range records {
		if _, ok := seen[rec.ProductID]; ok {
			continue
		}
		seen[rec.ProductID] = struct{}{}
		ids = append(ids, rec.ProductID)
	}
	return ids
}
