package algorithms

import (
	"fmt"
	"sort"
	"sync"

	"protonfusion/internal/algorithms/mirror"
	"protonfusion/internal/algorithms/quantum"
	"protonfusion/internal/algorithms/standard"
	"protonfusion/internal/elements"
	"protonfusion/internal/raster"
)

// Algorithm defines the interface for single-input image transforms
type Algorithm interface {
	Process(input *raster.Image, params map[string]interface{}) (*raster.Image, error)
	ValidateParameters(params map[string]interface{}) error
	GetDefaultParameters() map[string]interface{}
	GetName() string
}

type Manager struct {
	algorithms map[string]Algorithm
	parameters map[string]map[string]interface{}
	mu         sync.RWMutex
}

func NewManager(table *elements.Table, parallelism raster.Parallelism) *Manager {
	manager := &Manager{
		algorithms: make(map[string]Algorithm),
		parameters: make(map[string]map[string]interface{}),
	}

	manager.registerAlgorithms(table, parallelism)
	manager.initializeDefaultParameters()

	return manager
}

func (m *Manager) registerAlgorithms(table *elements.Table, parallelism raster.Parallelism) {
	for _, alg := range []Algorithm{
		standard.NewProcessor(table, parallelism),
		quantum.NewProcessor(parallelism),
		mirror.NewProcessor(parallelism),
	} {
		m.algorithms[alg.GetName()] = alg
	}
}

func (m *Manager) initializeDefaultParameters() {
	for name, algorithm := range m.algorithms {
		m.parameters[name] = algorithm.GetDefaultParameters()
	}
}

func (m *Manager) GetParameters(algorithm string) map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]interface{})
	for k, v := range m.parameters[algorithm] {
		result[k] = v
	}
	return result
}

// SetParameter validates value against the algorithm before storing it.
func (m *Manager) SetParameter(algorithm, name string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	alg, exists := m.algorithms[algorithm]
	if !exists {
		return fmt.Errorf("unknown algorithm: %s", algorithm)
	}

	if err := alg.ValidateParameters(map[string]interface{}{name: value}); err != nil {
		return err
	}

	m.parameters[algorithm][name] = value
	return nil
}

func (m *Manager) GetAlgorithm(name string) (Algorithm, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if algorithm, exists := m.algorithms[name]; exists {
		return algorithm, nil
	}

	return nil, fmt.Errorf("unknown algorithm: %s", name)
}

// Run executes a registered algorithm with its stored parameters.
func (m *Manager) Run(name string, input *raster.Image) (*raster.Image, error) {
	algorithm, err := m.GetAlgorithm(name)
	if err != nil {
		return nil, err
	}
	return algorithm.Process(input, m.GetParameters(name))
}

func (m *Manager) GetAvailableAlgorithms() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.algorithms))
	for name := range m.algorithms {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
