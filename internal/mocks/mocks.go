package mocks

import (
	"github.com/stretchr/testify/mock"
)

// TestingT is the subset of testing.TB the mocks need.
type TestingT interface {
	mock.TestingT
	Cleanup(func())
}

func register(m *mock.Mock, t TestingT) {
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
}
