package ownership

// OwnerPath computes the chain of to-one relation names from typeName to its
// owner type, inclusive of the final hop into the owner. targetOwner narrows
// the walk to a specific ownership group; when empty, the type's own declared
// owner is used. The second return is false when typeName takes part in no
// ownership chain toward targetOwner.
//
// Paths are recomputed on every call; only the configuration behind them is
// cached. Intermediate pass-through hops chain transparently as long as each
// declares the same ultimate owner.
func (e *Engine) OwnerPath(typeName, targetOwner string) ([]string, bool, error) {
	cfg, err := e.ConfigFor(typeName)
	if err != nil {
		return nil, false, err
	}
	if cfg.ParentRelation == "" {
		return nil, false, nil
	}
	if targetOwner == "" {
		targetOwner = cfg.Owner
	}
	if cfg.Owner != targetOwner {
		return nil, false, nil
	}

	var path []string
	visited := map[string]struct{}{}
	current := typeName

	for {
		cfg, err := e.ConfigFor(current)
		if err != nil {
			return nil, false, err
		}
		if !cfg.Enabled() || cfg.Owner != targetOwner {
			break
		}
		if _, seen := visited[current]; seen {
			return nil, false, newConfigurationErrorf(current, "ownership configuration forms a cycle")
		}
		visited[current] = struct{}{}

		path = append(path, cfg.ParentRelation)

		t, _ := e.types.Get(current)
		rel := t.Relation(cfg.ParentRelation)
		current = rel.Target
	}

	if len(path) == 0 {
		return nil, false, nil
	}
	return path, true, nil
}
