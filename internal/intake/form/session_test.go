package form

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"caseintake/internal/intake/ports"
	"caseintake/internal/intake/ports/mocks"
	"caseintake/pkg/domain"
)

type SessionSuite struct {
	suite.Suite
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) TestCapabilityLookups() {
	session := New(
		WithLookup("customerid", &ports.Lookup{ID: "A1", Kind: domain.KindOrganization}),
		WithAttributeOnly("hidden_ref", nil),
	)

	s.Run("missing handles report not ok", func() {
		_, ok := session.Attribute("nope")
		s.False(ok)
		_, ok = session.Control("hidden_ref")
		s.False(ok)
		_, ok = session.Panel("summary")
		s.False(ok)
	})

	s.Run("values are copied on read and write", func() {
		attr, ok := session.Attribute("customerid")
		s.Require().True(ok)
		v := attr.Value()
		v.ID = "changed"
		s.Equal(domain.RecordID("A1"), session.Value("customerid").ID)
	})
}

func (s *SessionSuite) TestNotifications() {
	session := New()

	session.SetNotification("first", ports.SeverityError, "account-error")
	session.SetNotification("second", ports.SeverityWarning, "account-error")
	b, ok := session.Banner("account-error")
	s.Require().True(ok)
	s.Equal("second", b.Message)
	s.Len(session.Banners(), 1)

	session.ClearNotification("missing")
	session.ClearNotification("account-error")
	session.ClearNotification("account-error")
	s.Empty(session.Banners())
}

func (s *SessionSuite) TestOnChangeRunsAfterSet() {
	session := New(WithLookup("primarycontactid", nil))
	var seen []*ports.Lookup
	session.OnChange("primarycontactid", func(l *ports.Lookup) { seen = append(seen, l) })

	attr, _ := session.Attribute("primarycontactid")
	attr.SetValue(&ports.Lookup{ID: "P1", Kind: domain.KindPerson})
	attr.SetValue(nil)

	s.Require().Len(seen, 2)
	s.Equal(domain.RecordID("P1"), seen[0].ID)
	s.Nil(seen[1])
}

func (s *SessionSuite) TestBoundPanelLoadsBoundRecord() {
	ctrl := gomock.NewController(s.T())
	records := mocks.NewMockRecordService(ctrl)

	session := New(WithLookup("primarycontactid", nil))
	panel := NewBoundPanel(records, []string{"emailaddress1", "telephone1"}, WithLoadContext(context.Background()))
	panel.Bind(session, "primarycontactid")
	s.True(panel.IsLoaded(), "empty binding is loaded immediately")

	s.Run("loads the referenced person", func() {
		records.EXPECT().
			Fetch(gomock.Any(), domain.KindPerson, domain.RecordID("P1"), "emailaddress1", "telephone1").
			Return(&ports.Record{Fields: map[string]string{"emailaddress1": "e@x.com"}}, nil)

		attr, _ := session.Attribute("primarycontactid")
		attr.SetValue(&ports.Lookup{ID: "P1", Kind: domain.KindPerson})
		panel.Wait()

		s.True(panel.IsLoaded())
		email, err := panel.Text("emailaddress1")
		s.Require().NoError(err)
		s.Equal("e@x.com", email)
		phone, err := panel.Text("telephone1")
		s.Require().NoError(err)
		s.Empty(phone)
	})

	s.Run("failed load completes empty", func() {
		records.EXPECT().
			Fetch(gomock.Any(), domain.KindPerson, domain.RecordID("P2"), "emailaddress1", "telephone1").
			Return(nil, errors.New("boom"))

		panel.Load(&ports.Lookup{ID: "P2", Kind: domain.KindPerson})
		panel.Wait()

		s.True(panel.IsLoaded())
		email, _ := panel.Text("emailaddress1")
		s.Empty(email)
	})

	s.Run("unknown field fails to read", func() {
		_, err := panel.Text("fax")
		s.ErrorIs(err, ErrFieldNotFound)
	})
}

func (s *SessionSuite) TestStaticPanelScriptedLoad() {
	panel := NewStaticPanel(map[string]string{"emailaddress1": "e@x.com"}).LoadAfter(2)
	s.False(panel.IsLoaded())
	s.False(panel.IsLoaded())
	s.True(panel.IsLoaded())
	s.Equal(3, panel.Checks())

	panel.Unreadable("telephone1")
	_, err := panel.Text("telephone1")
	s.ErrorIs(err, ErrFieldNotFound)
	_, ok := panel.Control("telephone1")
	s.True(ok)
}
