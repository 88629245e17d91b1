package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PabloGalante/analyst-agent/internal/domain"
	"github.com/PabloGalante/analyst-agent/internal/observability"
)

// End is the terminal pseudo-node.
const End = "__end__"

// Node is one step of the workflow. It receives the state produced by the
// previous step and returns the state for the next one.
type Node interface {
	Name() string
	Run(ctx context.Context, st domain.SessionState) (domain.SessionState, error)
}

// RouterFunc picks a branch key from the state after a node ran.
type RouterFunc func(st domain.SessionState) string

type branch struct {
	router  RouterFunc
	targets map[string]string
}

// Graph is a builder for a directed acyclic workflow with one entry point.
// Every node has exactly one outgoing transition: a plain edge or a
// conditional branch.
type Graph struct {
	nodes    map[string]Node
	edges    map[string]string
	branches map[string]branch
	entry    string
	errs     []error
}

func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[string]Node),
		edges:    make(map[string]string),
		branches: make(map[string]branch),
	}
}

func (g *Graph) AddNode(n Node) *Graph {
	name := n.Name()
	switch {
	case name == "" || name == End:
		g.errs = append(g.errs, fmt.Errorf("invalid node name %q", name))
	case g.nodes[name] != nil:
		g.errs = append(g.errs, fmt.Errorf("duplicate node %q", name))
	default:
		g.nodes[name] = n
	}
	return g
}

func (g *Graph) AddEdge(from, to string) *Graph {
	if _, dup := g.edges[from]; dup {
		g.errs = append(g.errs, fmt.Errorf("node %q already has an edge", from))
		return g
	}
	g.edges[from] = to
	return g
}

// AddConditionalEdges routes from a node to one of targets, keyed by the router's result.
func (g *Graph) AddConditionalEdges(from string, router RouterFunc, targets map[string]string) *Graph {
	if router == nil || len(targets) == 0 {
		g.errs = append(g.errs, fmt.Errorf("conditional edges from %q need a router and targets", from))
		return g
	}
	if _, dup := g.branches[from]; dup {
		g.errs = append(g.errs, fmt.Errorf("node %q already has conditional edges", from))
		return g
	}
	g.branches[from] = branch{router: router, targets: targets}
	return g
}

func (g *Graph) SetEntryPoint(name string) *Graph {
	g.entry = name
	return g
}

// Compile validates the graph and returns an executable form of it.
func (g *Graph) Compile() (*Runnable, error) {
	errs := append([]error{}, g.errs...)

	if g.entry == "" {
		errs = append(errs, errors.New("entry point not set"))
	} else if g.nodes[g.entry] == nil {
		errs = append(errs, fmt.Errorf("entry point %q is not a node", g.entry))
	}

	for name := range g.nodes {
		_, hasEdge := g.edges[name]
		_, hasBranch := g.branches[name]
		switch {
		case !hasEdge && !hasBranch:
			errs = append(errs, fmt.Errorf("node %q has no outgoing transition", name))
		case hasEdge && hasBranch:
			errs = append(errs, fmt.Errorf("node %q has both an edge and conditional edges", name))
		}
	}

	for from, to := range g.edges {
		if g.nodes[from] == nil {
			errs = append(errs, fmt.Errorf("edge from unknown node %q", from))
		}
		if to != End && g.nodes[to] == nil {
			errs = append(errs, fmt.Errorf("edge %q -> unknown node %q", from, to))
		}
	}
	for from, b := range g.branches {
		if g.nodes[from] == nil {
			errs = append(errs, fmt.Errorf("conditional edges from unknown node %q", from))
		}
		for key, to := range b.targets {
			if to != End && g.nodes[to] == nil {
				errs = append(errs, fmt.Errorf("branch %q of %q -> unknown node %q", key, from, to))
			}
		}
	}

	if len(errs) == 0 {
		if cyc := g.findCycle(); cyc != "" {
			errs = append(errs, fmt.Errorf("cycle through node %q", cyc))
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("compile workflow graph: %w", errors.Join(errs...))
	}

	return &Runnable{
		nodes:    g.nodes,
		edges:    g.edges,
		branches: g.branches,
		entry:    g.entry,
	}, nil
}

func (g *Graph) successors(name string) []string {
	if to, ok := g.edges[name]; ok {
		return []string{to}
	}
	var out []string
	for _, to := range g.branches[name].targets {
		out = append(out, to)
	}
	return out
}

// findCycle returns a node on a cycle, or "" when the graph is acyclic.
func (g *Graph) findCycle() string {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(g.nodes))

	var visit func(string) string
	visit = func(n string) string {
		state[n] = visiting
		for _, next := range g.successors(n) {
			if next == End {
				continue
			}
			switch state[next] {
			case visiting:
				return next
			case unvisited:
				if c := visit(next); c != "" {
					return c
				}
			}
		}
		state[n] = done
		return ""
	}

	for name := range g.nodes {
		if state[name] == unvisited {
			if c := visit(name); c != "" {
				return c
			}
		}
	}
	return ""
}

// Runnable is a compiled, immutable graph. It is safe for concurrent use as
// long as its nodes are.
type Runnable struct {
	nodes    map[string]Node
	edges    map[string]string
	branches map[string]branch
	entry    string
}

// Result is the outcome of one invocation.
type Result struct {
	State domain.SessionState
	Path  []string
}

// Invoke runs the graph from the entry point until End. Nodes run strictly
// sequentially. On error the partial state is discarded.
func (r *Runnable) Invoke(ctx context.Context, st domain.SessionState) (Result, error) {
	log := observability.LoggerFromContext(ctx)

	var path []string
	cur := r.entry
	for cur != End {
		if err := ctx.Err(); err != nil {
			return Result{Path: path}, fmt.Errorf("before node %s: %w", cur, err)
		}

		node := r.nodes[cur]
		path = append(path, cur)

		start := time.Now()
		log.Debug("node run start", "node", cur)

		next, err := node.Run(ctx, st)
		elapsed := time.Since(start)
		if err != nil {
			observability.RecordStage(cur, observability.OutcomeError, elapsed)
			log.Error("node failed", "node", cur, "elapsed_ms", elapsed.Milliseconds(), "error", err)
			return Result{Path: path}, fmt.Errorf("node %s failed: %w", cur, err)
		}
		observability.RecordStage(cur, observability.OutcomeOK, elapsed)
		log.Debug("node run end", "node", cur, "elapsed_ms", elapsed.Milliseconds())

		st = next
		cur, err = r.next(cur, st)
		if err != nil {
			return Result{Path: path}, err
		}
	}

	return Result{State: st, Path: path}, nil
}

func (r *Runnable) next(from string, st domain.SessionState) (string, error) {
	if to, ok := r.edges[from]; ok {
		return to, nil
	}
	b := r.branches[from]
	key := b.router(st)
	to, ok := b.targets[key]
	if !ok {
		return "", fmt.Errorf("router of %s returned unknown branch %q", from, key)
	}
	return to, nil
}
