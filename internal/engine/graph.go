package engine

import (
	"fmt"

	"github.com/shaiso/taskdep/internal/domain"
)

// ActionFactory создаёт действие для определения задачи.
type ActionFactory func(def *domain.TaskDef) (Action, error)

// Graph — граф задач, построенный из GraphSpec.
type Graph struct {
	// Name — имя графа.
	Name string

	tasks      map[string]*Task
	defs       map[string]*domain.TaskDef
	dependents map[string]int

	// ids — ID задач в порядке объявления.
	ids []string
}

// BuildGraph строит граф из GraphSpec.
//
// Спецификация валидируется (Validate). Зависимости связываются в
// объявленном порядке. Циклы здесь не проверяются: их обнаруживает
// обход при Execute или Plan.
//
// factory может быть nil — тогда задачи создаются без действий.
func BuildGraph(spec *domain.GraphSpec, factory ActionFactory) (*Graph, error) {
	if err := Validate(spec); err != nil {
		return nil, err
	}

	g := &Graph{
		Name:       spec.Name,
		tasks:      make(map[string]*Task, len(spec.Tasks)),
		defs:       make(map[string]*domain.TaskDef, len(spec.Tasks)),
		dependents: make(map[string]int, len(spec.Tasks)),
		ids:        make([]string, 0, len(spec.Tasks)),
	}

	// Первый проход: создаём задачи
	for i := range spec.Tasks {
		def := &spec.Tasks[i]

		var action Action
		if factory != nil {
			a, err := factory(def)
			if err != nil {
				return nil, fmt.Errorf("build action for %s: %w", def.ID, err)
			}
			action = a
		}

		g.tasks[def.ID] = NewTask(def.ID, action)
		g.defs[def.ID] = def
		g.ids = append(g.ids, def.ID)
	}

	// Второй проход: связываем зависимости
	for i := range spec.Tasks {
		def := &spec.Tasks[i]
		task := g.tasks[def.ID]

		for _, depID := range def.DependsOn {
			task.DependsOn(g.tasks[depID])
			g.dependents[depID]++
		}
	}

	return g, nil
}

// Task возвращает задачу по ID или nil.
func (g *Graph) Task(id string) *Task {
	return g.tasks[id]
}

// Def возвращает определение задачи по ID или nil.
func (g *Graph) Def(id string) *domain.TaskDef {
	return g.defs[id]
}

// IDs возвращает ID задач в порядке объявления.
func (g *Graph) IDs() []string {
	ids := make([]string, len(g.ids))
	copy(ids, g.ids)
	return ids
}

// Targets возвращает задачи, от которых никто не зависит, в порядке объявления.
// Это естественные корни для Execute.
func (g *Graph) Targets() []string {
	targets := make([]string, 0)
	for _, id := range g.ids {
		if g.dependents[id] == 0 {
			targets = append(targets, id)
		}
	}
	return targets
}

// Size возвращает количество задач в графе.
func (g *Graph) Size() int {
	return len(g.ids)
}
