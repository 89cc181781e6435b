package logging

import "github.com/stretchr/testify/mock"

// MockLogger is a testify mock of Logger
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Log(message string, level Level) {
	m.Called(message, level)
}
