package launchd

import "context"

// MockManager is a recording Manager for supervisor tests. It tracks every
// call and serves canned jobs and errors instead of touching launchctl.
type MockManager struct {
	// RegisterCalls holds the manifest paths passed to Register, in order.
	RegisterCalls []string
	// DeregisterCalls holds the manifest paths passed to Deregister, in order.
	DeregisterCalls []string
	// ListCalls counts List invocations.
	ListCalls int

	// RegisterError is returned from Register when set.
	RegisterError error
	// DeregisterError is returned from Deregister when set.
	DeregisterError error
	// Jobs is returned from List.
	Jobs []Job
	// ListError is returned from List when set.
	ListError error
}

// NewMockManager returns an empty recording manager.
func NewMockManager() *MockManager {
	return &MockManager{}
}

// Register records the call and returns the canned error.
func (m *MockManager) Register(_ context.Context, manifestPath string) error {
	m.RegisterCalls = append(m.RegisterCalls, manifestPath)

	return m.RegisterError
}

// Deregister records the call and returns the canned error.
func (m *MockManager) Deregister(_ context.Context, manifestPath string) error {
	m.DeregisterCalls = append(m.DeregisterCalls, manifestPath)

	return m.DeregisterError
}

// List records the call and returns the canned jobs.
func (m *MockManager) List(_ context.Context) ([]Job, error) {
	m.ListCalls++

	return m.Jobs, m.ListError
}

// Calls returns the total number of service-manager mutations recorded,
// which stop tests use to assert the "not installed" no-op path.
func (m *MockManager) Calls() int {
	return len(m.RegisterCalls) + len(m.DeregisterCalls)
}
