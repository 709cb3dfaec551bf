package transfer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/partygames/internal/dependencies/mocks"
	"github.com/mcoot/partygames/internal/model"
	"github.com/mcoot/partygames/internal/storage/memory"
	"github.com/mcoot/partygames/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.service = New(s.storage, s.clock, testutil.NopLogger(), DefaultConfig())
	s.ctx = context.Background()
}

func (s *ServiceSuite) TestIssueAndRedeem() {
	token, err := s.service.Issue(s.ctx, "1234", "Alice")
	s.Require().NoError(err)
	s.NotEmpty(token.Token)
	s.Equal(s.clock.Now().Add(5*time.Minute), token.ExpiresAt)

	redeemed, err := s.service.Redeem(s.ctx, token.Token)
	s.Require().NoError(err)
	s.Equal(model.RoomID("1234"), redeemed.RoomID)
	s.Equal("Alice", redeemed.Identity)
}

func (s *ServiceSuite) TestRedeemIsSingleUse() {
	token, _ := s.service.Issue(s.ctx, "1234", "Alice")
	_, err := s.service.Redeem(s.ctx, token.Token)
	s.Require().NoError(err)

	_, err = s.service.Redeem(s.ctx, token.Token)
	s.ErrorIs(err, model.ErrTransferTokenInvalid)
}

func (s *ServiceSuite) TestExpiredTokenRejected() {
	token, _ := s.service.Issue(s.ctx, "1234", "Alice")
	s.clock.Advance(5 * time.Minute)

	_, err := s.service.Redeem(s.ctx, token.Token)
	s.ErrorIs(err, model.ErrTransferTokenInvalid)
}

func (s *ServiceSuite) TestUnknownTokenRejected() {
	_, err := s.service.Redeem(s.ctx, "")
	s.ErrorIs(err, model.ErrTransferTokenInvalid)
	_, err = s.service.Redeem(s.ctx, "made-up")
	s.ErrorIs(err, model.ErrTransferTokenInvalid)
}

func (s *ServiceSuite) TestTokensAreUnique() {
	a, _ := s.service.Issue(s.ctx, "1234", "Alice")
	b, _ := s.service.Issue(s.ctx, "1234", "Alice")
	s.NotEqual(a.Token, b.Token)
}
