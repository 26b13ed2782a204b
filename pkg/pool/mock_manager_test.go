// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package pool_test

import (
	"context"
	"reflect"

	"github.com/golang/mock/gomock"
)

// MockManager is a gomock double for pool.Manager[*fakeConn].
type MockManager struct {
	ctrl     *gomock.Controller
	recorder *MockManagerMockRecorder
}

// MockManagerMockRecorder is the mock recorder for MockManager.
type MockManagerMockRecorder struct {
	mock *MockManager
}

// NewMockManager creates a new mock instance.
func NewMockManager(ctrl *gomock.Controller) *MockManager {
	mock := &MockManager{ctrl: ctrl}
	mock.recorder = &MockManagerMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockManager) EXPECT() *MockManagerMockRecorder {
	return m.recorder
}

// Connect mocks base method.
func (m *MockManager) Connect(ctx context.Context) (*fakeConn, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Connect", ctx)
	ret0, _ := ret[0].(*fakeConn)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Connect indicates an expected call of Connect.
func (mr *MockManagerMockRecorder) Connect(ctx interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Connect", reflect.TypeOf((*MockManager)(nil).Connect), ctx)
}

// Validate mocks base method.
func (m *MockManager) Validate(ctx context.Context, conn *fakeConn) (*fakeConn, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Validate", ctx, conn)
	ret0, _ := ret[0].(*fakeConn)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Validate indicates an expected call of Validate.
func (mr *MockManagerMockRecorder) Validate(ctx, conn interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Validate", reflect.TypeOf((*MockManager)(nil).Validate), ctx, conn)
}

// IsBroken mocks base method.
func (m *MockManager) IsBroken(conn *fakeConn) bool {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "IsBroken", conn)
	ret0, _ := ret[0].(bool)
	return ret0
}

// IsBroken indicates an expected call of IsBroken.
func (mr *MockManagerMockRecorder) IsBroken(conn interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "IsBroken", reflect.TypeOf((*MockManager)(nil).IsBroken), conn)
}

// TimeoutError mocks base method.
func (m *MockManager) TimeoutError() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "TimeoutError")
	ret0, _ := ret[0].(error)
	return ret0
}

// TimeoutError indicates an expected call of TimeoutError.
func (mr *MockManagerMockRecorder) TimeoutError() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "TimeoutError", reflect.TypeOf((*MockManager)(nil).TimeoutError))
}
