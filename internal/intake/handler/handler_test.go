package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"caseintake/internal/intake/fieldstate"
	"caseintake/internal/intake/notify"
	"caseintake/internal/intake/ports"
	"caseintake/internal/intake/ports/mocks"
	"caseintake/internal/intake/summary"
	"caseintake/internal/intake/workflow"
	"caseintake/pkg/domain"
	"caseintake/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	records *mocks.MockRecordService
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.records = mocks.NewMockRecordService(gomock.NewController(s.T()))

	panelLayout := summary.DefaultLayout()
	panelLayout.PollInterval = time.Millisecond
	notifier := notify.New()
	sync, err := summary.New(notifier, summary.WithLayout(panelLayout))
	s.Require().NoError(err)
	svc, err := workflow.New(s.records, fieldstate.New(), sync, notifier)
	s.Require().NoError(err)

	s.router = chi.NewRouter()
	New(svc, s.records, workflow.DefaultLayout(), panelLayout, nil).Register(s.router)
}

func (s *HandlerSuite) post(body any) (*ResolveResponse, int) {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/case-forms/resolve", body)
	rr := testutil.DoRequest(s.router, req)
	if rr.Code != http.StatusOK {
		return nil, rr.Code
	}
	return testutil.UnmarshalResponse[ResolveResponse](s.T(), rr), rr.Code
}

func (s *HandlerSuite) TestOrganizationWithContact() {
	s.records.EXPECT().
		Fetch(gomock.Any(), domain.KindOrganization, domain.RecordID("A1"), "primarycontactid").
		Return(&ports.Record{Fields: map[string]string{"primarycontactid": "P1"}}, nil)
	s.records.EXPECT().
		Fetch(gomock.Any(), domain.KindPerson, domain.RecordID("P1"), "fullname", "emailaddress1", "telephone1").
		Return(&ports.Record{Fields: map[string]string{"fullname": "Jane Doe", "emailaddress1": "e@x.com"}}, nil)
	s.records.EXPECT().
		Fetch(gomock.Any(), domain.KindPerson, domain.RecordID("P1"), "emailaddress1", "telephone1").
		Return(&ports.Record{Fields: map[string]string{"emailaddress1": "e@x.com"}}, nil)

	resp, code := s.post(map[string]any{
		"customer": map[string]string{"id": "{A1}", "kind": "account", "name": "Contoso"},
	})

	s.Require().Equal(http.StatusOK, code)
	s.Equal(string(workflow.OutcomeContactResolved), resp.Outcome)
	s.Require().NotNil(resp.PrimaryContact.Value)
	s.Equal("P1", resp.PrimaryContact.Value.ID)
	s.Equal("Jane Doe", resp.PrimaryContact.Value.Name)
	s.Require().NotNil(resp.PrimaryContact.Visible)
	s.True(*resp.PrimaryContact.Visible)
	s.Equal(string(ports.RequirementRequired), resp.PrimaryContact.RequiredLevel)

	s.Require().NotNil(resp.SummaryPanel)
	s.True(resp.SummaryPanel.Visible)
	s.Equal(FieldResponse{Value: "e@x.com", Visible: true}, resp.SummaryPanel.Fields["emailaddress1"])
	s.False(resp.SummaryPanel.Fields["telephone1"].Visible)
	s.Empty(resp.Notifications)
}

func (s *HandlerSuite) TestOrganizationWithoutContact() {
	s.records.EXPECT().
		Fetch(gomock.Any(), domain.KindOrganization, domain.RecordID("A2"), "primarycontactid").
		Return(&ports.Record{Fields: map[string]string{}}, nil)

	resp, code := s.post(map[string]any{
		"customer": map[string]string{"id": "A2", "kind": "account"},
	})

	s.Require().Equal(http.StatusOK, code)
	s.Equal(string(workflow.OutcomeNoPrimaryContact), resp.Outcome)
	s.Nil(resp.PrimaryContact.Value)
	s.Equal(string(ports.RequirementRequired), resp.PrimaryContact.RequiredLevel)
	ids := make([]string, 0, len(resp.Notifications))
	for _, b := range resp.Notifications {
		ids = append(ids, b.ID)
	}
	s.ElementsMatch([]string{string(notify.NoContactDetails), string(notify.NoPrimaryContact)}, ids)
	s.Require().NotNil(resp.SummaryPanel)
	s.False(resp.SummaryPanel.Visible)
}

func (s *HandlerSuite) TestPersonCustomerWithoutPanel() {
	resp, code := s.post(map[string]any{
		"customer": map[string]string{"id": "P5", "kind": "contact"},
		"layout":   map[string]bool{"summary_panel": false},
	})

	s.Require().Equal(http.StatusOK, code)
	s.Equal(string(workflow.OutcomePerson), resp.Outcome)
	s.Require().NotNil(resp.PrimaryContact.Visible)
	s.False(*resp.PrimaryContact.Visible)
	s.Equal(string(ports.RequirementNone), resp.PrimaryContact.RequiredLevel)
	s.Nil(resp.SummaryPanel)
}

func (s *HandlerSuite) TestEmptyCustomerClearsContact() {
	s.records.EXPECT().
		Fetch(gomock.Any(), domain.KindPerson, domain.RecordID("P1"), "emailaddress1", "telephone1").
		Return(&ports.Record{Fields: map[string]string{"telephone1": "555"}}, nil)

	resp, code := s.post(map[string]any{
		"primary_contact": map[string]string{"id": "P1", "kind": "contact"},
		"layout":          map[string]bool{"primary_contact_control": false},
	})

	s.Require().Equal(http.StatusOK, code)
	s.Equal(string(workflow.OutcomeNoCustomer), resp.Outcome)
	s.Nil(resp.PrimaryContact.Value)
	s.Nil(resp.PrimaryContact.Visible, "layout has no control")
}

func (s *HandlerSuite) TestRejectsInvalidRequests() {
	cases := []struct {
		name string
		body any
	}{
		{"unknown kind", map[string]any{"customer": map[string]string{"id": "A1", "kind": "lead"}}},
		{"missing kind", map[string]any{"customer": map[string]string{"id": "A1"}}},
		{"contact of wrong kind", map[string]any{"primary_contact": map[string]string{"id": "A1", "kind": "account"}}},
		{"unknown field", map[string]any{"customerid": "A1"}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, code := s.post(tc.body)
			s.Equal(http.StatusBadRequest, code)
		})
	}
}

func (s *HandlerSuite) TestCancelledRequestDoesNotHang() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/case-forms/resolve", map[string]any{})
	rr := testutil.DoRequest(s.router, req.WithContext(ctx))
	s.Equal(http.StatusOK, rr.Code)
}
