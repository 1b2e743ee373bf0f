// Package registry resolves node type ids to node factories and executes nodes.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"plugin"
	"slices"
	"sync"
	"time"

	"github.com/dukex/graphflow/pkg/models"
	"github.com/dukex/graphflow/pkg/protocol"
)

var ErrNodeNotRegistered = errors.New("node type not registered")

type Registry struct {
	logger    *slog.Logger
	mu        sync.RWMutex
	factories map[string]protocol.NodeFactory
	aliases   map[string]string
	timeout   time.Duration
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:    log.With("module", "registry"),
		factories: make(map[string]protocol.NodeFactory),
		aliases:   make(map[string]string),
	}
}

// SetExecutionTimeout bounds every node execution. Zero disables the bound.
func (r *Registry) SetExecutionTimeout(timeout time.Duration) {
	r.timeout = timeout
}

func (r *Registry) RegisterNode(factory protocol.NodeFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[factory.ID()] = factory
}

// RegisterAlias makes alias resolve to the factory registered as typeID.
func (r *Registry) RegisterAlias(alias, typeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.aliases[alias] = typeID
}

func (r *Registry) factory(typeID string) (protocol.NodeFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if target, ok := r.aliases[typeID]; ok {
		typeID = target
	}

	factory, ok := r.factories[typeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotRegistered, typeID)
	}

	return factory, nil
}

// Resolve returns the executor descriptor for a node type id.
func (r *Registry) Resolve(typeID string) (protocol.Descriptor, error) {
	factory, err := r.factory(typeID)
	if err != nil {
		return protocol.Descriptor{}, err
	}

	return protocol.Descriptor{
		ExecutorID: factory.ID(),
		Schema:     factory.Schema(),
	}, nil
}

func (r *Registry) CreateNode(ctx context.Context, typeID, id string, config map[string]any) (protocol.Node, error) {
	factory, err := r.factory(typeID)
	if err != nil {
		return nil, err
	}

	node, err := factory.Create(ctx, id, config)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", protocol.ErrInvalidConfig, id, err)
	}

	return node, nil
}

// Execute creates the node for the request and runs it once.
func (r *Registry) Execute(ctx context.Context, req models.ExecuteRequest) (*models.ExecuteResult, error) {
	node, err := r.CreateNode(ctx, req.ExecutorID, req.NodeID, req.Config)
	if err != nil {
		return nil, err
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	started := time.Now()

	output, err := node.Execute(ctx, protocol.NodeInput{
		ExecutionID: req.ExecutionID,
		NodeID:      req.NodeID,
		Inputs:      req.Inputs,
		InitialData: req.InitialData,
		Attempt:     req.Attempt,
	})
	if err != nil {
		return nil, err
	}

	if ctx.Err() != nil {
		return nil, fmt.Errorf("node %s: %w", req.NodeID, ctx.Err())
	}

	if output == nil {
		output = make(map[string]any)
	}

	return &models.ExecuteResult{
		Output:          output,
		ExecutionTimeMs: time.Since(started).Milliseconds(),
	}, nil
}

func (r *Registry) GetAvailableNodes() []protocol.NodeFactory {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factories := make([]protocol.NodeFactory, 0, len(r.factories))
	for _, factory := range r.factories {
		factories = append(factories, factory)
	}

	slices.SortFunc(factories, func(a, b protocol.NodeFactory) int {
		if a.ID() < b.ID() {
			return -1
		}

		if a.ID() > b.ID() {
			return 1
		}

		return 0
	})

	return factories
}

// NodeTypes lists registered type ids and aliases, sorted.
func (r *Registry) NodeTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories)+len(r.aliases))
	for id := range r.factories {
		types = append(types, id)
	}

	for alias := range r.aliases {
		types = append(types, alias)
	}

	slices.Sort(types)

	return types
}

// LoadNodePlugins opens every *.so under pluginsPath/nodes and registers the
// factory exported as the "Node" symbol.
func (r *Registry) LoadNodePlugins(pluginsPath string) ([]protocol.NodeFactory, error) {
	factories, err := loadPlugin[protocol.NodeFactory](r.logger, pluginsPath, "Node")
	if err != nil {
		return nil, err
	}

	for _, factory := range factories {
		r.RegisterNode(factory)
	}

	return factories, nil
}

func loadPlugin[T any](logger *slog.Logger, pluginsPath string, symbolName string) ([]T, error) {
	rootPath := pluginsPath + "/nodes"

	pluginPathList, err := fs.Glob(os.DirFS(rootPath), "*.so")
	if err != nil {
		return nil, err
	}

	l := logger.With(slog.String("path", rootPath), slog.String("type", symbolName))
	l.Info("Loading plugins")

	pluginList := make([]T, 0, len(pluginPathList))

	for _, p := range pluginPathList {
		plg, err := plugin.Open(rootPath + "/" + p)
		if err != nil {
			return nil, fmt.Errorf("failed to open plugin %s: %w", p, err)
		}

		v, err := plg.Lookup(symbolName)
		if err != nil {
			return nil, fmt.Errorf("plugin %s: %w", p, err)
		}

		castV, ok := v.(T)
		if !ok {
			ptr, isPtr := v.(*T)
			if !isPtr {
				return nil, fmt.Errorf("plugin %s: symbol %s has unexpected type %T", p, symbolName, v)
			}

			castV = *ptr
		}

		pluginList = append(pluginList, castV)

		l.Info("Loaded node plugin", slog.String("plugin", p))
	}

	return pluginList, nil
}
