package persistence

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/json-to-terraform/atc/internal/editor"
	"github.com/json-to-terraform/atc/internal/result"
)

// Operation names carried by notifications.
const (
	OpSave = "save"
	OpLoad = "load"
	OpList = "list"
)

// Adapter runs export and import against a canvas and reports the outcome
// as a user notification.
type Adapter struct {
	backend Backend
	log     *zap.Logger
}

// NewAdapter returns an adapter over backend.
func NewAdapter(backend Backend, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{backend: backend, log: log.Named("persistence")}
}

// Backend returns the underlying persistence strategy.
func (a *Adapter) Backend() Backend { return a.backend }

// Save exports the canvas diagram under name.
func (a *Adapter) Save(ctx context.Context, c *editor.Canvas, name string) result.Notification {
	err := a.backend.Save(ctx, name, c.Diagram())
	if err != nil {
		return a.fail(OpSave, name, "Failed to save architecture", err)
	}
	a.log.Info("architecture saved", zap.String("name", name))
	return result.Notification{Operation: OpSave, Level: result.LevelSuccess, Message: "Architecture saved successfully."}
}

// Load imports the diagram saved under name and, only when every node
// validates, replaces the canvas contents with it.
func (a *Adapter) Load(ctx context.Context, c *editor.Canvas, name string) result.Notification {
	bundle, err := a.backend.Load(ctx, name)
	if err != nil {
		return a.fail(OpLoad, name, "Failed to load architecture", err)
	}
	d, err := Import(ctx, c.Catalog(), c.Provider(), bundle)
	if err != nil {
		return a.fail(OpLoad, name, "Failed to load architecture", err)
	}
	c.Replace(d)
	a.log.Info("architecture loaded", zap.String("name", name), zap.Int("nodes", len(d.Nodes)))
	return result.Notification{Operation: OpLoad, Level: result.LevelSuccess, Message: "Architecture loaded successfully."}
}

// List returns the saved diagram names.
func (a *Adapter) List(ctx context.Context) ([]string, result.Notification) {
	names, err := a.backend.List(ctx)
	if err != nil {
		return nil, a.fail(OpList, "", "Failed to list architectures", err)
	}
	return names, result.Notification{Operation: OpList, Level: result.LevelSuccess, Message: fmt.Sprintf("%d architectures available.", len(names))}
}

func (a *Adapter) fail(op, name, prefix string, err error) result.Notification {
	if errors.Is(err, context.Canceled) {
		a.log.Debug("operation canceled", zap.String("op", op), zap.String("name", name))
		return result.Notification{Operation: op, Level: result.LevelCanceled, Message: "Operation canceled."}
	}
	a.log.Error("persistence operation failed", zap.String("op", op), zap.String("name", name), zap.Error(err))
	return result.Notification{Operation: op, Level: result.LevelError, Message: fmt.Sprintf("%s: %v", prefix, err)}
}
