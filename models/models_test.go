package models

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/validtech/valid_backend/config"
	"github.com/validtech/valid_backend/testsupport"
	"github.com/validtech/valid_backend/utils"
)

func setup(t *testing.T) context.Context {
	t.Helper()
	testsupport.UseSQLite(t, AllModels()...)
	testsupport.NoRedis(t)
	ctx := utils.SetIsAdminInContext(context.Background(), true)
	return utils.SetProfileNameInContext(ctx, "Test Admin")
}

func mustAccount(t *testing.T, ctx context.Context, name string) *Account {
	t.Helper()
	a, err := CreateAccount(ctx, &NewAccount{Name: name, Industry: "Fintech"})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return a
}

func validDeployment() *NewDeployment {
	return &NewDeployment{
		Name:               "Checkout",
		Lenses:             Lenses{Identity: true, Document: true, Sanctions: true},
		ConsensusThreshold: 2,
		TTLSeconds:         3600,
		DefaultAction:      DefaultActionPurge,
	}
}

func TestCreateAccountDefaultsAndHistory(t *testing.T) {
	ctx := setup(t)
	a, err := CreateAccount(ctx, &NewAccount{
		Name:        "  Acme  ",
		DataClasses: []string{"pii", " pii ", "", "financial"},
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if a.Name != "Acme" || a.Status != AccountStatusProspect || a.OutputPreference != OutputPreferenceVerdictOnly {
		t.Fatalf("unexpected defaults: %+v", a)
	}
	if diff := cmp.Diff(StringList{"pii", "financial"}, a.DataClasses); diff != "" {
		t.Fatalf("data classes (-want +got):\n%s", diff)
	}

	got, err := GetAccount(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if diff := cmp.Diff(a.DataClasses, got.DataClasses); diff != "" {
		t.Fatalf("round trip (-want +got):\n%s", diff)
	}

	conn, err := ListHistories(ctx, HistoryFilter{ReferenceType: "accounts", ReferenceId: a.ID})
	if err != nil {
		t.Fatalf("ListHistories: %v", err)
	}
	if len(conn.Edges) != 1 || conn.Edges[0].Node.ActorName != "Test Admin" {
		t.Fatalf("expected one history row by Test Admin, got %+v", conn.Edges)
	}
}

func TestCreateAccountRejectsBlankName(t *testing.T) {
	ctx := setup(t)
	if _, err := CreateAccount(ctx, &NewAccount{Name: "   "}); err == nil {
		t.Fatalf("expected error for blank name")
	}
	if _, err := GetAccount(ctx, "missing"); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateAccountTabs(t *testing.T) {
	ctx := setup(t)
	a := mustAccount(t, ctx, "Acme")

	status := AccountStatusActive
	loc := "Austin, TX"
	updated, err := UpdateAccountOverviewTab(ctx, a.ID, &UpdateAccountOverview{Status: &status, Location: &loc})
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if updated.Status != AccountStatusActive || updated.Location != loc || updated.Name != "Acme" {
		t.Fatalf("unexpected overview result: %+v", updated)
	}

	bad := AccountStatus("gone")
	if _, err := UpdateAccountOverviewTab(ctx, a.ID, &UpdateAccountOverview{Status: &bad}); err == nil {
		t.Fatalf("expected invalid status error")
	}

	updated, err = UpdateAccountIntakeTab(ctx, a.ID, &UpdateAccountIntake{
		DataClasses:      []string{"biometric"},
		UseCases:         []string{"age verification", "kyc"},
		OutputPreference: OutputPreferenceFullAudit,
	})
	if err != nil {
		t.Fatalf("intake: %v", err)
	}
	if updated.OutputPreference != OutputPreferenceFullAudit || len(updated.UseCases) != 2 {
		t.Fatalf("unexpected intake result: %+v", updated)
	}
}

func TestListAccountsPaginatesAndFilters(t *testing.T) {
	ctx := setup(t)
	names := []string{"Alpha", "Bravo", "Charlie", "Delta", "Echo"}
	for _, n := range names {
		mustAccount(t, ctx, n)
	}

	first := 2
	seen := map[string]bool{}
	var after *string
	pages := 0
	for {
		conn, err := ListAccounts(ctx, AccountFilter{First: &first, After: after})
		if err != nil {
			t.Fatalf("ListAccounts: %v", err)
		}
		pages++
		for _, e := range conn.Edges {
			if seen[e.Node.ID] {
				t.Fatalf("account %s listed twice", e.Node.Name)
			}
			seen[e.Node.ID] = true
		}
		if !*conn.PageInfo.HasNextPage {
			break
		}
		end := conn.PageInfo.EndCursor
		after = &end
		if pages > 5 {
			t.Fatalf("pagination did not terminate")
		}
	}
	if len(seen) != len(names) || pages != 3 {
		t.Fatalf("saw %d accounts over %d pages", len(seen), pages)
	}

	conn, err := ListAccounts(ctx, AccountFilter{Query: "CHAR"})
	if err != nil {
		t.Fatalf("ListAccounts q: %v", err)
	}
	if len(conn.Edges) != 1 || conn.Edges[0].Node.Name != "Charlie" {
		t.Fatalf("name search returned %+v", conn.Edges)
	}
}

func TestCreateDeploymentValidation(t *testing.T) {
	ctx := setup(t)
	a := mustAccount(t, ctx, "Acme")

	cases := []struct {
		name   string
		mutate func(*NewDeployment)
	}{
		{"no lenses", func(d *NewDeployment) { d.Lenses = Lenses{} }},
		{"threshold zero", func(d *NewDeployment) { d.ConsensusThreshold = 0 }},
		{"threshold above enabled", func(d *NewDeployment) { d.ConsensusThreshold = 4 }},
		{"ttl zero", func(d *NewDeployment) { d.TTLSeconds = 0 }},
		{"ttl too long", func(d *NewDeployment) { d.TTLSeconds = MaxDeploymentTTLSeconds + 1 }},
		{"bad action", func(d *NewDeployment) { d.DefaultAction = "KEEP" }},
		{"blank name", func(d *NewDeployment) { d.Name = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validDeployment()
			tc.mutate(in)
			if _, err := CreateDeployment(ctx, a.ID, in); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}

	if _, err := CreateDeployment(ctx, "nope", validDeployment()); err == nil {
		t.Fatalf("expected unknown account error")
	}

	d, err := CreateDeployment(ctx, a.ID, validDeployment())
	if err != nil {
		t.Fatalf("CreateDeployment: %v", err)
	}
	if diff := cmp.Diff([]string{"identity", "document", "sanctions"}, d.Lenses.Enabled()); diff != "" {
		t.Fatalf("enabled lenses (-want +got):\n%s", diff)
	}

	list, err := ListDeployments(ctx, a.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListDeployments = %v, %v", list, err)
	}
	if _, err := DeleteDeployment(ctx, d.ID); err != nil {
		t.Fatalf("DeleteDeployment: %v", err)
	}
	if _, err := GetDeployment(ctx, d.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected deleted deployment to be gone, got %v", err)
	}
}

func TestConnectorLifecycle(t *testing.T) {
	ctx := setup(t)
	a := mustAccount(t, ctx, "Acme")

	if _, err := CreateConnector(ctx, a.ID, &NewConnector{Name: "Vault", Kind: "other", EndpointUrl: "https://x.test"}); err == nil {
		t.Fatalf("expected kind error")
	}
	if _, err := CreateConnector(ctx, a.ID, &NewConnector{Name: "Vault", Kind: ConnectorKindCustomerVault, EndpointUrl: "ftp://x.test"}); err == nil {
		t.Fatalf("expected url error")
	}
	if _, err := CreateConnector(ctx, a.ID, &NewConnector{Name: "Vault", Kind: ConnectorKindCustomerVault, EndpointUrl: "https://x.test", AuthType: ConnectorAuthApiKey}); err == nil {
		t.Fatalf("expected auth ref error")
	}

	c, err := CreateConnector(ctx, a.ID, &NewConnector{Name: "Vault", Kind: ConnectorKindCustomerVault, EndpointUrl: "https://vault.example.com/health"})
	if err != nil {
		t.Fatalf("CreateConnector: %v", err)
	}
	if c.Status != ConnectorStatusUntested || c.AuthType != ConnectorAuthNone {
		t.Fatalf("unexpected defaults: %+v", c)
	}

	tested, err := RecordConnectorTest(ctx, c.ID, true, "ok", time.Now().UTC())
	if err != nil {
		t.Fatalf("RecordConnectorTest: %v", err)
	}
	if tested.Status != ConnectorStatusConnected || tested.LastTestedAt == nil {
		t.Fatalf("unexpected test result: %+v", tested)
	}
	if _, err := RecordConnectorTest(ctx, "missing", false, "x", time.Now()); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := DeleteConnector(ctx, c.ID); err != nil {
		t.Fatalf("DeleteConnector: %v", err)
	}
}

func TestRecordDemoRunUpdatesCountersAndIsAppendOnly(t *testing.T) {
	ctx := setup(t)
	testsupport.UseMiniredis(t)
	a := mustAccount(t, ctx, "Acme")
	d, err := CreateDeployment(ctx, a.ID, validDeployment())
	if err != nil {
		t.Fatalf("CreateDeployment: %v", err)
	}

	account, deployment, err := LoadDemoTarget(ctx, a.ID, d.ID)
	if err != nil {
		t.Fatalf("LoadDemoTarget: %v", err)
	}
	for i, v := range []Verdict{VerdictOK, VerdictBlock} {
		res, err := RecordDemoRun(ctx, account, deployment, DemoOutcome{
			Verdict:    v,
			Scores:     ScoreMap{"identity": 0.9},
			Flags:      []string{"demo"},
			InputHash:  "aW5wdXQ=",
			OutputHash: "b3V0cHV0",
		})
		if err != nil {
			t.Fatalf("RecordDemoRun: %v", err)
		}
		if res.Account.TotalRuns != i+1 || res.Account.LastVerdict == nil || *res.Account.LastVerdict != v {
			t.Fatalf("run %d: unexpected account %+v", i, res.Account)
		}
	}

	conn, err := ListProofRecords(ctx, ProofRecordFilter{AccountId: a.ID, Verdict: string(VerdictBlock)})
	if err != nil {
		t.Fatalf("ListProofRecords: %v", err)
	}
	if len(conn.Edges) != 1 {
		t.Fatalf("expected one BLOCK record, got %d", len(conn.Edges))
	}
	rec := conn.Edges[0].Node
	if rec.Scores["identity"] != 0.9 {
		t.Fatalf("scores not persisted: %+v", rec.Scores)
	}

	err = config.GetDB().WithContext(ctx).Model(&ProofRecord{}).Where("id = ?", rec.ID).Update("verdict", VerdictOK).Error
	if !errors.Is(err, ErrProofRecordImmutable) {
		t.Fatalf("expected update to be refused, got %v", err)
	}
	err = config.GetDB().WithContext(ctx).Where("id = ?", rec.ID).Delete(&ProofRecord{}).Error
	if !errors.Is(err, ErrProofRecordImmutable) {
		t.Fatalf("expected delete to be refused, got %v", err)
	}

	other := mustAccount(t, ctx, "Other")
	if _, _, err := LoadDemoTarget(ctx, other.ID, d.ID); err == nil {
		t.Fatalf("expected cross-account deployment to be rejected")
	}
}

func validIntake() *NewEventIntake {
	return &NewEventIntake{
		EventName:          "Summer Fest",
		EventDate:          time.Date(2026, 7, 4, 18, 0, 0, 0, time.UTC),
		Venue:              "Pier 70",
		City:               "San Francisco",
		ExpectedAttendance: 5000,
		ContactName:        "Sam Rivera",
		ContactEmail:       "Sam@Example.com",
		ContactPhone:       "(650) 253-0000",
		PassTypes:          []PassType{{Name: "GA", Price: decimal.NewFromInt(45), Quantity: 4000}},
		PromoterSplit:      60,
		VenueSplit:         30,
		PlatformSplit:      10,
		Vendors:            []Vendor{{Name: "Tacos", Category: "food"}},
		PayoutMethod:       PayoutMethodBank,
		BankAccountName:    "Rivera Events LLC",
		BankRoutingNumber:  "121000358",
		BankAccountNumber:  "000123456789",
	}
}

func TestValidateEventIntake(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*NewEventIntake)
		field  string
		tag    string
	}{
		{"splits", func(in *NewEventIntake) { in.PlatformSplit = 20 }, "splits", "sum100"},
		{"phone", func(in *NewEventIntake) { in.ContactPhone = "12" }, "contact_phone", "phone"},
		{"email", func(in *NewEventIntake) { in.ContactEmail = "nope" }, "contact_email", "email"},
		{"no passes", func(in *NewEventIntake) { in.PassTypes = nil }, "pass_types", "required"},
		{"bank account", func(in *NewEventIntake) { in.BankAccountNumber = "" }, "bank_account_number", "required_for_bank"},
		{"paypal", func(in *NewEventIntake) { in.PayoutMethod = PayoutMethodPaypal }, "paypal_email", "required_for_paypal"},
		{"check", func(in *NewEventIntake) { in.PayoutMethod = PayoutMethodCheck }, "mailing_address", "required_for_check"},
		{"method", func(in *NewEventIntake) { in.PayoutMethod = "crypto" }, "payout_method", "oneof"},
		{"pass price", func(in *NewEventIntake) { in.PassTypes[0].Price = decimal.NewFromInt(-1) }, "price", "gte"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validIntake()
			tc.mutate(in)
			err := ValidateEventIntake(in)
			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected validation errors, got %v", err)
			}
			got := utils.ProcessValidationErrors(err)
			if got[tc.field] != tc.tag {
				t.Fatalf("errors = %v, want %s=%s", got, tc.field, tc.tag)
			}
		})
	}

	if err := ValidateEventIntake(validIntake()); err != nil {
		t.Fatalf("valid intake rejected: %v", err)
	}
}

func TestCreateEventIntakeQueuesNotification(t *testing.T) {
	ctx := setup(t)
	intake, err := CreateEventIntake(ctx, validIntake())
	if err != nil {
		t.Fatalf("CreateEventIntake: %v", err)
	}
	if intake.BankAccountLast4 != "6789" || intake.ContactEmail != "sam@example.com" {
		t.Fatalf("unexpected stored payout/contact: %+v", intake)
	}

	got, err := GetEventIntake(ctx, intake.ID)
	if err != nil {
		t.Fatalf("GetEventIntake: %v", err)
	}
	if len(got.PassTypes.Data) != 1 || !got.PassTypes.Data[0].Price.Equal(decimal.NewFromInt(45)) {
		t.Fatalf("pass types not persisted: %+v", got.PassTypes.Data)
	}

	var recs []NotificationRecord
	if err := config.GetDB().Find(&recs).Error; err != nil {
		t.Fatalf("load outbox: %v", err)
	}
	if len(recs) != 1 || recs[0].Kind != NotificationKindIntakeNotification || recs[0].PublishStatus != OutboxPublishStatusPending {
		t.Fatalf("unexpected outbox rows: %+v", recs)
	}
}

func TestSignUpLoginLogout(t *testing.T) {
	ctx := setup(t)
	if _, err := Login(ctx, "a@b.co", "whatever1"); !errors.Is(err, ErrSessionStoreUnavailable) {
		t.Fatalf("expected session store error without redis, got %v", err)
	}
	mr := testsupport.UseMiniredis(t)

	if _, err := SignUp(ctx, &NewProfile{Email: "member@example.com", Password: "short"}); err == nil {
		t.Fatalf("expected short password error")
	}
	p, err := SignUp(ctx, &NewProfile{Email: " Member@Example.com ", Password: "correct horse", FullName: "Mem Ber"})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if p.Role != ProfileRoleMember || p.InvestorAccessApproved != nil || !p.Active() {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if _, err := SignUp(ctx, &NewProfile{Email: "member@example.com", Password: "correct horse"}); err == nil {
		t.Fatalf("expected duplicate email error")
	}

	if _, err := Login(ctx, "member@example.com", "wrong password"); err == nil {
		t.Fatalf("expected bad password error")
	}
	info, err := Login(ctx, "MEMBER@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	email, ok, err := SessionEmail(info.Token)
	if err != nil || !ok || email != "member@example.com" {
		t.Fatalf("SessionEmail = %q %v %v", email, ok, err)
	}
	if ttl := mr.TTL("Token:" + info.Token); ttl <= 0 {
		t.Fatalf("expected token ttl, got %v", ttl)
	}

	lctx := utils.SetTokenInContext(ctx, info.Token)
	lctx = utils.SetEmailInContext(lctx, email)
	if ok, err := Logout(lctx); err != nil || !ok {
		t.Fatalf("Logout = %v, %v", ok, err)
	}
	if _, ok, _ := SessionEmail(info.Token); ok {
		t.Fatalf("token still valid after logout")
	}

	var welcome int64
	config.GetDB().Model(&NotificationRecord{}).Where("kind = ?", NotificationKindWelcomeEmail).Count(&welcome)
	if welcome != 1 {
		t.Fatalf("expected one welcome email queued, got %d", welcome)
	}
}

func TestAccessRequestsAndApproval(t *testing.T) {
	ctx := setup(t)
	p, err := SignUp(ctx, &NewProfile{Email: "inv@example.com", Password: "long enough"})
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	r1, err := RequestAccess(ctx, p, AccessAreaInvestor, &NewAccessRequest{Message: "please"})
	if err != nil {
		t.Fatalf("RequestAccess: %v", err)
	}
	r2, err := RequestAccess(ctx, p, AccessAreaInvestor, &NewAccessRequest{})
	if err != nil || r2.ID != r1.ID {
		t.Fatalf("expected pending request to be reused, got %v %v", r2, err)
	}
	if _, err := RequestAccess(ctx, p, AccessArea("board"), &NewAccessRequest{}); err == nil {
		t.Fatalf("expected invalid area error")
	}

	updated, err := UpdateProfileAccessFlags(ctx, p.ID, &UpdateProfileAccess{InvestorAccessApproved: utils.NewTrue()})
	if err != nil {
		t.Fatalf("UpdateProfileAccessFlags: %v", err)
	}
	if updated.InvestorAccessApproved == nil || !*updated.InvestorAccessApproved {
		t.Fatalf("investor access not granted: %+v", updated)
	}
	conn, err := ListAccessRequests(ctx, AccessRequestFilter{Status: string(AccessRequestStatusApproved)})
	if err != nil {
		t.Fatalf("ListAccessRequests: %v", err)
	}
	if len(conn.Edges) != 1 || conn.Edges[0].Node.DecidedAt == nil {
		t.Fatalf("expected request closed as approved, got %+v", conn.Edges)
	}

	missing := "no-such-account"
	if _, err := UpdateProfileAccessFlags(ctx, p.ID, &UpdateProfileAccess{PortalAccountId: &missing}); err == nil {
		t.Fatalf("expected unknown account error")
	}
}

func TestTenantGuardScopesPortalQueries(t *testing.T) {
	ctx := setup(t)
	a := mustAccount(t, ctx, "Acme")
	b := mustAccount(t, ctx, "Beta")
	for _, acc := range []*Account{a, b} {
		if _, err := CreateDeployment(ctx, acc.ID, validDeployment()); err != nil {
			t.Fatalf("CreateDeployment: %v", err)
		}
	}

	portal := utils.SetAccountIdInContext(context.Background(), a.ID)
	var deployments []Deployment
	if err := config.GetDB().WithContext(portal).Find(&deployments).Error; err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(deployments) != 1 || deployments[0].AccountId != a.ID {
		t.Fatalf("tenant guard leaked rows: %+v", deployments)
	}

	admin := utils.SetIsAdminInContext(portal, true)
	deployments = nil
	if err := config.GetDB().WithContext(admin).Find(&deployments).Error; err != nil {
		t.Fatalf("find admin: %v", err)
	}
	if len(deployments) != 2 {
		t.Fatalf("admin should see all deployments, got %d", len(deployments))
	}
}

func TestSponsorsUpsertAndCache(t *testing.T) {
	ctx := setup(t)
	testsupport.UseMiniredis(t)

	n, err := UpsertSponsors(ctx, []NewSponsor{{Name: "Zeta"}, {Name: "Alpha", SortOrder: 5}, {Name: "Hidden", Active: utils.NewFalse()}})
	if err != nil || n != 3 {
		t.Fatalf("UpsertSponsors = %d, %v", n, err)
	}
	list, err := ListSponsors(ctx)
	if err != nil {
		t.Fatalf("ListSponsors: %v", err)
	}
	var names []string
	for _, s := range list {
		names = append(names, s.Name)
	}
	if diff := cmp.Diff([]string{"Zeta", "Alpha"}, names); diff != "" {
		t.Fatalf("sponsors (-want +got):\n%s", diff)
	}

	// served from cache even after the table changes underneath
	config.GetDB().Where("1 = 1").Delete(&Sponsor{})
	cached, err := ListSponsors(ctx)
	if err != nil || len(cached) != 2 {
		t.Fatalf("expected cached list, got %d %v", len(cached), err)
	}

	if _, err := UpsertSponsors(ctx, []NewSponsor{{Name: "Alpha", SortOrder: 1}}); err != nil {
		t.Fatalf("UpsertSponsors again: %v", err)
	}
	list, _ = ListSponsors(ctx)
	if len(list) != 1 || list[0].Name != "Alpha" {
		t.Fatalf("cache not invalidated: %+v", list)
	}
}

func TestAdminOverviewCounts(t *testing.T) {
	ctx := setup(t)
	a := mustAccount(t, ctx, "Acme")
	if _, err := CreateDeployment(ctx, a.ID, validDeployment()); err != nil {
		t.Fatalf("CreateDeployment: %v", err)
	}
	o, err := GetAdminOverview(ctx)
	if err != nil {
		t.Fatalf("GetAdminOverview: %v", err)
	}
	if o.Accounts != 1 || o.Deployments != 1 || o.ProofRecords != 0 || o.VerdictCounts["OK"] != 0 {
		t.Fatalf("unexpected overview: %+v", o)
	}
}
