package advisor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/vitreos/internal/completion"
	"github.com/Skufu/vitreos/internal/gate"
	"github.com/Skufu/vitreos/internal/kv"
	"github.com/Skufu/vitreos/internal/profile"
	"github.com/Skufu/vitreos/internal/prompts"
	"github.com/Skufu/vitreos/internal/severity"
	"github.com/Skufu/vitreos/internal/symptoms"
)

type fakeAI struct {
	mu           sync.Mutex
	unconfigured bool
	reply        string
	err          error
	calls        []completion.Request

	// started and release, when set, hold Complete until release is closed.
	started chan struct{}
	release chan struct{}
}

func (f *fakeAI) Configured() bool { return !f.unconfigured }

func (f *fakeAI) Complete(_ context.Context, req completion.Request) (string, error) {
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	return f.reply, f.err
}

func (f *fakeAI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeAI) lastCall() completion.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type fixture struct {
	svc      *Service
	store    *profile.Store
	ai       *fakeAI
	keywords *symptoms.KeywordSet
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := profile.NewStore(kv.NewMemoryStore(), zerolog.Nop())
	ai := &fakeAI{}
	keywords := symptoms.NewKeywordSet()
	return &fixture{
		svc:      New(store, gate.NewPolicy(store), ai, keywords, zerolog.Nop()),
		store:    store,
		ai:       ai,
		keywords: keywords,
	}
}

func (f *fixture) submit(t *testing.T, p profile.Profile) {
	t.Helper()
	require.NoError(t, f.store.Submit(context.Background(), p))
}

func requireKind(t *testing.T, err error, k Kind) *Failure {
	t.Helper()
	fail, ok := AsFailure(err)
	require.True(t, ok, "expected *Failure, got %v", err)
	require.Equal(t, k, fail.Kind)
	return fail
}

func TestAdvisorEndToEnd(t *testing.T) {
	f := newFixture(t)
	f.submit(t, profile.Profile{profile.BloodGroup: "A+", profile.WBC: "9.1"})
	f.ai.reply = "```json\n[{\"t\":\"High WBC\",\"d\":\"...\",\"s\":\"mod\"}]\n```"

	findings, err := f.svc.Advisor(context.Background())
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "High WBC", findings[0].Title)
	assert.Equal(t, severity.Moderate, findings[0].Severity)
	assert.Equal(t, "bm", findings[0].Presentation.Badge)

	call := f.ai.lastCall()
	assert.Equal(t, string(prompts.Advisor), call.Feature)
	assert.Contains(t, call.Context, "Blood Group: A+")
	assert.Contains(t, call.Context, "WBC: 9.1")
	assert.Contains(t, call.Context, "Hemoglobin: Not provided")
	assert.Contains(t, call.Context, "Known Allergies: None")
}

func TestAdvisorRejectsUnratedFinding(t *testing.T) {
	f := newFixture(t)
	f.submit(t, profile.Profile{profile.BloodGroup: "A+"})

	f.ai.reply = `[{"t":"High WBC","d":"..."}]`
	_, err := f.svc.Advisor(context.Background())
	requireKind(t, err, KindMalformed)

	f.ai.reply = `[{"t":"High WBC","d":"...","s":"severe"}]`
	_, err = f.svc.Advisor(context.Background())
	requireKind(t, err, KindMalformed)
}

func TestAdvisorRejectsFindingWithoutDetail(t *testing.T) {
	f := newFixture(t)
	f.submit(t, profile.Profile{profile.BloodGroup: "A+"})

	f.ai.reply = `[{"t":"High WBC","s":"low"}]`
	_, err := f.svc.Advisor(context.Background())
	requireKind(t, err, KindMalformed)

	f.ai.reply = `[{"t":"High WBC","d":"  ","s":"low"}]`
	_, err = f.svc.Advisor(context.Background())
	requireKind(t, err, KindMalformed)
}

func TestAllergyEndToEnd(t *testing.T) {
	f := newFixture(t)
	f.submit(t, profile.Profile{profile.Allergies: "penicillin", profile.Medications: "amoxicillin"})
	f.ai.reply = `Here you go: {"severity":"high","crossReacts":["cephalosporins"],"clinicalNote":"Avoid beta-lactams."} hope this helps`

	res, err := f.svc.Allergy(context.Background(), "penicillin")
	require.NoError(t, err)
	assert.Equal(t, severity.High, res.Severity)
	assert.Equal(t, []string{"cephalosporins"}, res.CrossReacts)
	assert.Equal(t, []string{}, res.AvoidList)
	assert.Equal(t, []string{}, res.DrugInteractions)
	assert.Equal(t, "High Risk", res.Presentation.Label)

	call := f.ai.lastCall()
	assert.Contains(t, call.Context, `Allergen to analyze: "penicillin"`)
	assert.Contains(t, call.Context, "Known allergies: penicillin")
	assert.Contains(t, call.Context, "Current medications: amoxicillin")
}

func TestAllergyValidationBeforeGate(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Allergy(context.Background(), " a ")
	requireKind(t, err, KindValidation)
	assert.Zero(t, f.ai.callCount())
}

func TestGatedFeaturesMakeNoCallsWhenLocked(t *testing.T) {
	f := newFixture(t)
	f.ai.reply = `{}`
	ctx := context.Background()

	runs := map[prompts.Feature]func() error{
		prompts.Advisor: func() error { _, err := f.svc.Advisor(ctx); return err },
		prompts.Allergy: func() error { _, err := f.svc.Allergy(ctx, "peanuts"); return err },
		prompts.Drug: func() error {
			_, err := f.svc.Drug(ctx, DrugInput{Name: "ibuprofen"})
			return err
		},
		prompts.Dashboard: func() error { _, err := f.svc.Dashboard(ctx); return err },
	}
	for feature, run := range runs {
		fail := requireKind(t, run(), KindLocked)
		assert.Equal(t, feature, fail.Feature)
		assert.Equal(t, gate.Placeholder(feature), fail.Placeholder)
	}
	assert.Zero(t, f.ai.callCount())
}

func TestClearRelocks(t *testing.T) {
	f := newFixture(t)
	f.submit(t, profile.Profile{profile.BloodGroup: "B-"})
	require.NoError(t, f.store.Clear(context.Background()))

	_, err := f.svc.Advisor(context.Background())
	requireKind(t, err, KindLocked)
	assert.Zero(t, f.ai.callCount())
}

func TestNotConfigured(t *testing.T) {
	f := newFixture(t)
	f.ai.unconfigured = true

	_, err := f.svc.Consult(context.Background(), "sore throat")
	requireKind(t, err, KindNotConfigured)
	assert.Zero(t, f.ai.callCount())
}

func TestTransportAndRecoveryFailures(t *testing.T) {
	f := newFixture(t)

	f.ai.err = &completion.TransportError{Status: 500, Message: "AI API error 500"}
	_, err := f.svc.Consult(context.Background(), "sore throat")
	fail := requireKind(t, err, KindRequestFailed)
	assert.Equal(t, "AI API error 500", fail.Message)

	f.ai.err = nil
	f.ai.reply = "I cannot help with that."
	_, err = f.svc.Consult(context.Background(), "sore throat")
	requireKind(t, err, KindMalformed)

	f.ai.err = &completion.ConfigurationError{Reason: "missing key"}
	_, err = f.svc.Consult(context.Background(), "sore throat")
	requireKind(t, err, KindNotConfigured)
	assert.True(t, errors.Is(err, f.ai.err))
}

func TestDrugBandsScore(t *testing.T) {
	f := newFixture(t)
	f.submit(t, profile.Profile{profile.Allergies: "aspirin", profile.Medications: "warfarin"})

	f.ai.reply = `{"safe":false,"safetyScore":42,"risks":[{"level":"high","msg":"Bleeding risk"}],"clinicalNote":"Avoid."}`
	res, err := f.svc.Drug(context.Background(), DrugInput{Name: "ibuprofen", Conditions: "ulcer"})
	require.NoError(t, err)
	assert.False(t, res.Safe)
	assert.Equal(t, severity.BandHighRisk, res.Band)
	assert.Equal(t, severity.High, res.Severity)
	assert.Equal(t, "High Risk", res.SafetyLabel)
	assert.Equal(t, []string{}, res.Alternatives)

	call := f.ai.lastCall()
	assert.Contains(t, call.Context, "Medication to analyze: ibuprofen")
	assert.Contains(t, call.Context, "Current medications: warfarin")
	assert.Contains(t, call.Context, "Current conditions: ulcer")
}

func TestDrugOverridesProfileFields(t *testing.T) {
	f := newFixture(t)
	f.submit(t, profile.Profile{profile.Allergies: "aspirin"})
	f.ai.reply = `{"safe":true,"safetyScore":75,"clinicalNote":"Fine."}`

	res, err := f.svc.Drug(context.Background(), DrugInput{Name: "paracetamol", Allergies: "latex"})
	require.NoError(t, err)
	assert.Equal(t, severity.BandGood, res.Band)
	assert.Contains(t, f.ai.lastCall().Context, "Known allergies: latex")
}

func TestDrugRejectsBadScores(t *testing.T) {
	f := newFixture(t)
	f.submit(t, profile.Profile{profile.BloodGroup: "O+"})

	for _, reply := range []string{
		`{"safe":true,"safetyScore":101,"clinicalNote":"x"}`,
		`{"safe":true,"safetyScore":-1,"clinicalNote":"x"}`,
		`{"safe":true,"clinicalNote":"x"}`,
		`{"safe":true,"safetyScore":"high","clinicalNote":"x"}`,
		`{"safetyScore":80,"clinicalNote":"x"}`,
	} {
		f.ai.reply = reply
		_, err := f.svc.Drug(context.Background(), DrugInput{Name: "ibuprofen"})
		requireKind(t, err, KindMalformed)
	}

	_, err := f.svc.Drug(context.Background(), DrugInput{Name: "  "})
	requireKind(t, err, KindValidation)
}

func TestVoiceUsesKeywordsAndScanContext(t *testing.T) {
	f := newFixture(t)
	f.keywords.Observe("I have a headache and fever")

	f.ai.reply = `{"title":"CBC","summary":"Normal counts.","keyFindings":[{"label":"WBC","value":7.2,"status":"Normal"}],"extractedData":{"bg":"O+","wbc":7.2}}`
	_, err := f.svc.Scan(context.Background(), Document{Name: "cbc.pdf", MIMEType: "application/pdf", Size: 2048})
	require.NoError(t, err)

	f.ai.reply = `{"severity":"mod","conditions":["Flu"],"advice":"Rest and hydrate.","urgent":false}`
	res, err := f.svc.Voice(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, severity.Moderate, res.Severity)
	assert.Equal(t, []string{"Fever", "Headache"}, res.Keywords)
	assert.Equal(t, severity.Moderate.TriageAdvice(), res.Triage)
	assert.Equal(t, []string{}, res.Remedies)

	call := f.ai.lastCall()
	assert.Contains(t, call.Context, `"I have a headache and fever"`)
	assert.Contains(t, call.Context, "Detected symptom keywords: Fever, Headache.")
	assert.Contains(t, call.Context, "Recent scanned report context: Normal counts.")
}

func TestVoiceWithoutInput(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Voice(context.Background(), " ")
	requireKind(t, err, KindValidation)
	assert.Zero(t, f.ai.callCount())
}

func TestNutritionTokenLimit(t *testing.T) {
	f := newFixture(t)
	f.ai.reply = `{"eat":[{"i":"🥦","n":"Broccoli","b":"Iron"}],"mealPlan":"Eat greens."}`

	res, err := f.svc.Nutrition(context.Background(), "anemia")
	require.NoError(t, err)
	assert.Equal(t, "anemia", res.Label)
	assert.Equal(t, []Food{}, res.Avoid)
	assert.Equal(t, 700, f.ai.lastCall().MaxTokens)
	assert.NotContains(t, f.ai.lastCall().Context, "Patient profile")
}

func TestDashboardDerivesOverallHealth(t *testing.T) {
	f := newFixture(t)
	for _, bg := range []string{"A+", "A+", "A+", "A+", "A+", "A+"} {
		f.submit(t, profile.Profile{profile.BloodGroup: bg})
	}
	f.ai.reply = `{"overallHealth":"Good","healthScore":60,"insights":["Stable"],"alerts":[{"metric":"WBC","message":"High"}]}`

	res, err := f.svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Fair", res.OverallHealth)
	assert.Equal(t, severity.BandCaution, res.Band)
	assert.Equal(t, DashboardEntries, res.Entries)
	assert.Equal(t, []string{}, res.Recommendations)
	assert.Contains(t, f.ai.lastCall().Context, "Entry 5")
	assert.NotContains(t, f.ai.lastCall().Context, "Entry 6")
}

func TestScanImageAndApply(t *testing.T) {
	f := newFixture(t)
	f.ai.reply = `{"title":"CBC","explanation":"Looks fine.","keyFindings":[],"extractedData":{"al":"peanuts","bogus":"x","wbc":null}}`

	doc := Document{Name: "cbc.png", MIMEType: "image/png", Size: 4, Content: []byte{1, 2, 3, 4}}
	res, err := f.svc.Scan(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, "cbc.png", res.FileName)

	call := f.ai.lastCall()
	require.NotNil(t, call.Image)
	assert.Equal(t, "image/png", call.Image.MIMEType)
	assert.Equal(t, 0.3, call.Temperature)
	assert.Equal(t, 1200, call.MaxTokens)

	applied, err := f.svc.ApplyLastScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	assert.Equal(t, "peanuts", f.store.Snapshot()[profile.Allergies])
	assert.False(t, f.store.Complete())

	_, err = f.svc.ApplyLastScan(context.Background())
	requireKind(t, err, KindValidation)
}

func TestScanRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	f.ai.reply = `{"keyFindings":[{"label":"WBC","value":"7","status":"weird"}]}`
	_, err := f.svc.Scan(context.Background(), Document{Name: "a.pdf", MIMEType: "application/pdf", Size: 10})
	requireKind(t, err, KindMalformed)

	_, err = f.svc.Scan(context.Background(), Document{Name: "a.pdf"})
	requireKind(t, err, KindValidation)
}

func TestRefresherReplacesPendingRun(t *testing.T) {
	f := newFixture(t)
	f.submit(t, profile.Profile{profile.BloodGroup: "A+"})
	f.ai.reply = `{"healthScore":90}`

	r := NewRefresher(f.svc, 20*time.Millisecond, zerolog.Nop())
	defer r.Stop()

	assert.False(t, r.Navigate("allergy"))
	assert.True(t, r.Navigate(DashboardPage))
	assert.True(t, r.Navigate(DashboardPage))
	assert.True(t, r.Latest().Pending)

	require.Eventually(t, func() bool {
		return r.Latest().Result != nil
	}, time.Second, 5*time.Millisecond)

	state := r.Latest()
	assert.False(t, state.Pending)
	assert.Equal(t, "Good", state.Result.OverallHealth)
	assert.Equal(t, 1, f.ai.callCount())
}

func TestRefresherStopWaitsForInFlightRun(t *testing.T) {
	f := newFixture(t)
	f.submit(t, profile.Profile{profile.BloodGroup: "A+"})
	f.ai.reply = `{"healthScore":90}`
	f.ai.started = make(chan struct{}, 1)
	f.ai.release = make(chan struct{})

	r := NewRefresher(f.svc, time.Millisecond, zerolog.Nop())
	require.True(t, r.Navigate(DashboardPage))

	select {
	case <-f.ai.started:
	case <-time.After(time.Second):
		t.Fatal("refresh never reached the completer")
	}

	stopped := make(chan struct{})
	go func() {
		r.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a refresh was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(f.ai.release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the refresh finished")
	}
	assert.Nil(t, r.Latest().Result)
	assert.False(t, r.Latest().Pending)
}

func TestRefresherIgnoresScheduleAfterStop(t *testing.T) {
	f := newFixture(t)
	f.submit(t, profile.Profile{profile.BloodGroup: "A+"})
	f.ai.reply = `{"healthScore":90}`

	r := NewRefresher(f.svc, time.Millisecond, zerolog.Nop())
	r.Stop()

	assert.True(t, r.Navigate(DashboardPage))
	assert.False(t, r.Latest().Pending)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 0, f.ai.callCount())
}
