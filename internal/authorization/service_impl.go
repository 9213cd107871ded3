package authorization

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/machikado/market/internal/actorcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectOwnership      = "ownership"
	ObjectTransfer       = "transfer"
	ObjectConversation   = "conversation"
	ObjectMemo           = "memo"
	ObjectProduct        = "product"
	ObjectSupportConsole = "support_console"
)

const (
	ActionView   = "view"
	ActionWrite  = "write"
	ActionManage = "manage"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor actorcontext.Actor, object string, action string) error {
	if actor.UserID == 0 {
		return ErrInvalidActor
	}

	subject := fmt.Sprintf("user:%s", actor.UserID.String())
	roleName, err := roleFor(actor)
	if err != nil {
		return err
	}

	// Support staff are scoped to one town; admins act in every town.
	domain := "town:*"
	if actor.Role == actorcontext.RoleSupport {
		if actor.TownID == 0 {
			return ErrInvalidTown
		}
		domain = fmt.Sprintf("town:%s", actor.TownID.String())
	}

	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Warn("authorization denied",
			zap.String("subject", subject),
			zap.String("domain", domain),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func roleFor(actor actorcontext.Actor) (string, error) {
	switch actor.Role {
	case actorcontext.RoleSupport:
		return "role:support", nil
	case actorcontext.RoleAdmin:
		return "role:admin", nil
	case actorcontext.RoleBuyer:
		return "role:buyer", nil
	default:
		return "", ErrInvalidActor
	}
}

func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Support staff work the console within their town.
		{"role:support", ObjectSupportConsole, ActionView},
		{"role:support", ObjectOwnership, ActionView},
		{"role:support", ObjectOwnership, ActionManage},
		{"role:support", ObjectTransfer, ActionView},
		{"role:support", ObjectTransfer, ActionManage},
		{"role:support", ObjectConversation, ActionView},
		{"role:support", ObjectConversation, ActionWrite},
		{"role:support", ObjectMemo, ActionManage},

		// Admins additionally manage the product catalog.
		{"role:admin", ObjectSupportConsole, ActionView},
		{"role:admin", ObjectOwnership, ActionView},
		{"role:admin", ObjectOwnership, ActionManage},
		{"role:admin", ObjectTransfer, ActionView},
		{"role:admin", ObjectTransfer, ActionManage},
		{"role:admin", ObjectConversation, ActionView},
		{"role:admin", ObjectConversation, ActionWrite},
		{"role:admin", ObjectMemo, ActionManage},
		{"role:admin", ObjectProduct, ActionManage},
	}

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
