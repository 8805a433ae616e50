package testutils

import (
	"context"
	"errors"

	"github.com/stretchr/testify/mock"
)

type MockMailService struct {
	mock.Mock
}

func (m *MockMailService) SendTemplate(ctx context.Context, templateName string, to []string, subject string, data map[string]any) error {
	args := m.Called(ctx, templateName, to, subject, data)
	return args.Error(0)
}

// SentCode returns the code carried by the nth recorded SendTemplate call.
func (m *MockMailService) SentCode(n int) string {
	calls := m.Calls
	if n >= len(calls) {
		return ""
	}
	data, _ := calls[n].Arguments.Get(4).(map[string]any)
	code, _ := data["Code"].(string)
	return code
}

// StaticCodes hands out predetermined one-time codes in order.
type StaticCodes struct {
	Codes []string
	next  int
}

func (s *StaticCodes) Generate(length int) (string, error) {
	if s.next >= len(s.Codes) {
		return "", errors.New("no static codes left")
	}
	code := s.Codes[s.next]
	s.next++
	return code, nil
}
