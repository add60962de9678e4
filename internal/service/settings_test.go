package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"hubmirror/internal/domain"
	"hubmirror/internal/service/mocks"
)

const validToken = "pat-na1-12345678-1234-1234-1234-123456789012"

type SettingsServiceTestSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	options *mocks.MockOptionStore
	svc     *SettingsService
}

func (s *SettingsServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.options = mocks.NewMockOptionStore(s.ctrl)
	s.svc = NewSettingsService(s.options, domain.Settings{
		PostType:    "post",
		PostStatus:  domain.StatusDraft,
		SyncEnabled: false,
		Interval:    domain.IntervalDaily,
	})
}

func (s *SettingsServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestSettingsServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SettingsServiceTestSuite))
}

func (s *SettingsServiceTestSuite) expectGets(values map[string]string) {
	for _, key := range []string{OptionAPIToken, OptionPostType, OptionPostStatus, OptionSyncEnabled, OptionSyncInterval} {
		s.options.EXPECT().Get(gomock.Any(), key).Return(values[key], nil)
	}
}

func (s *SettingsServiceTestSuite) TestLoad_Defaults() {
	s.expectGets(map[string]string{})

	st, err := s.svc.Load(context.Background())

	s.NoError(err)
	s.Empty(st.APIToken)
	s.Equal("post", st.PostType)
	s.Equal(domain.StatusDraft, st.PostStatus)
	s.False(st.SyncEnabled)
	s.Equal(domain.IntervalDaily, st.Interval)
}

func (s *SettingsServiceTestSuite) TestLoad_StoredValuesOverrideDefaults() {
	s.expectGets(map[string]string{
		OptionAPIToken:     validToken,
		OptionPostType:     "page",
		OptionPostStatus:   "publish",
		OptionSyncEnabled:  "1",
		OptionSyncInterval: "hourly",
	})

	st, err := s.svc.Load(context.Background())

	s.NoError(err)
	s.Equal(validToken, st.APIToken)
	s.Equal("page", st.PostType)
	s.Equal(domain.StatusPublish, st.PostStatus)
	s.True(st.SyncEnabled)
	s.Equal(domain.IntervalHourly, st.Interval)
}

func (s *SettingsServiceTestSuite) TestLoad_InvalidStoredValuesFallBack() {
	s.expectGets(map[string]string{
		OptionPostStatus:   "banana",
		OptionSyncInterval: "minutely",
	})

	st, err := s.svc.Load(context.Background())

	s.NoError(err)
	s.Equal(domain.StatusDraft, st.PostStatus)
	s.Equal(domain.IntervalDaily, st.Interval)
}

func (s *SettingsServiceTestSuite) TestLoad_StoreError() {
	s.options.EXPECT().Get(gomock.Any(), OptionAPIToken).Return("", errors.New("db down"))

	_, err := s.svc.Load(context.Background())

	s.Error(err)
	s.Contains(err.Error(), "load settings")
}

func (s *SettingsServiceTestSuite) TestSave_PersistsAllKeys() {
	ctx := context.Background()

	s.options.EXPECT().Set(ctx, OptionAPIToken, validToken).Return(nil)
	s.options.EXPECT().Set(ctx, OptionPostType, "post").Return(nil)
	s.options.EXPECT().Set(ctx, OptionPostStatus, "publish").Return(nil)
	s.options.EXPECT().Set(ctx, OptionSyncEnabled, "1").Return(nil)
	s.options.EXPECT().Set(ctx, OptionSyncInterval, "weekly").Return(nil)

	err := s.svc.Save(ctx, domain.Settings{
		APIToken:    validToken,
		PostType:    "",
		PostStatus:  domain.StatusPublish,
		SyncEnabled: true,
		Interval:    domain.IntervalWeekly,
	})

	s.NoError(err)
}

func (s *SettingsServiceTestSuite) TestSave_RejectsMalformedToken() {
	err := s.svc.Save(context.Background(), domain.Settings{
		APIToken:   "not-a-token",
		PostStatus: domain.StatusDraft,
		Interval:   domain.IntervalDaily,
	})

	s.Error(err)
	s.Contains(err.Error(), "invalid HubSpot API key format")
}

func (s *SettingsServiceTestSuite) TestSave_RejectsUnknownStatus() {
	err := s.svc.Save(context.Background(), domain.Settings{
		APIToken:   validToken,
		PostStatus: domain.Status("banana"),
		Interval:   domain.IntervalDaily,
	})

	s.Error(err)
}

func (s *SettingsServiceTestSuite) TestSave_RejectsUnknownInterval() {
	err := s.svc.Save(context.Background(), domain.Settings{
		APIToken:   validToken,
		PostStatus: domain.StatusDraft,
		Interval:   domain.Interval("minutely"),
	})

	s.Error(err)
}
