package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"citysafe/pkg/models"
)

func openTestStore(t *testing.T) {
	t.Helper()
	require.NoError(t, Open(t.TempDir()))
	t.Cleanup(func() { _ = Close() })
}

func msg(id, city, author, body string, ts int64) models.Message {
	return models.Message{ID: id, City: city, Author: author, Body: body, Kind: models.KindText, TS: ts}
}

func TestSaveAndListMessagesOrder(t *testing.T) {
	openTestStore(t)
	base := time.Now().UnixNano()
	require.NoError(t, SaveMessage(msg("m1", "istanbul", "alice", "first", base)))
	require.NoError(t, SaveMessage(msg("m2", "istanbul", "bob", "second", base+1)))
	require.NoError(t, SaveMessage(msg("m3", "ankara", "carol", "other city", base+2)))

	got, err := ListMessages("istanbul", 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "m1", got[0].ID)
	require.Equal(t, "m2", got[1].ID)

	// after is exclusive
	got, err = ListMessages("istanbul", base, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "m2", got[0].ID)
}

func TestMessageUpdateKeepsOneChannelSlot(t *testing.T) {
	openTestStore(t)
	m := msg("m1", "izmir", "alice", "hello", time.Now().UnixNano())
	require.NoError(t, SaveMessage(m))

	m.MarkRead("bob")
	require.NoError(t, SaveMessage(m))

	got, err := ListMessages("izmir", 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, []string{"bob"}, got[0].ReadBy)

	vers, err := ListMessageVersions("m1")
	require.NoError(t, err)
	require.Len(t, vers, 2)

	latest, err := GetLatestMessage("m1")
	require.NoError(t, err)
	require.Equal(t, []string{"bob"}, latest.ReadBy)
}

func TestSoftDeleteAndPurge(t *testing.T) {
	openTestStore(t)
	m := msg("m1", "bursa", "alice", "oops", time.Now().UnixNano())
	require.NoError(t, SaveMessage(m))

	m.Deleted = true
	m.Body = ""
	require.NoError(t, SaveMessage(m))

	got, err := ListMessages("bursa", 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.True(t, got[0].Deleted)

	require.NoError(t, PurgeMessage("bursa", "m1"))
	got, err = ListMessages("bursa", 0, 0)
	require.NoError(t, err)
	require.Empty(t, got)
	_, err = GetLatestMessage("m1")
	require.Error(t, err)
}

func TestListChannels(t *testing.T) {
	openTestStore(t)
	base := time.Now().UnixNano()
	require.NoError(t, SaveMessage(msg("m1", "istanbul", "alice", "hi", base)))
	require.NoError(t, SaveMessage(msg("m2", "ankara", "bob", "yo", base+1)))

	chans, err := ListChannels()
	require.NoError(t, err)
	require.Len(t, chans, 2)
	byCity := map[string]models.Channel{}
	for _, c := range chans {
		byCity[c.City] = c
	}
	require.Equal(t, "alice", byCity["istanbul"].LastAuthor)
	require.Equal(t, "hi", byCity["istanbul"].LastPreview)
}

func TestChannelActivityNotRewoundByOldMessageUpdate(t *testing.T) {
	openTestStore(t)
	base := time.Now().UnixNano()
	older := msg("m-old", "istanbul", "alice", "earlier", base)
	require.NoError(t, SaveMessage(older))
	require.NoError(t, SaveMessage(msg("m-new", "istanbul", "bob", "latest", base+1000)))

	// a read receipt re-saves the older message
	older.MarkRead("bob")
	require.NoError(t, SaveMessage(older))

	chans, err := ListChannels()
	require.NoError(t, err)
	require.Len(t, chans, 1)
	require.Equal(t, base+1000, chans[0].UpdatedTS)
	require.Equal(t, "bob", chans[0].LastAuthor)
	require.Equal(t, "latest", chans[0].LastPreview)
}

func TestSOSRoundTrip(t *testing.T) {
	openTestStore(t)
	a := models.SOSAlert{
		ID:       "s1",
		User:     "alice",
		Type:     "medical",
		Urgency:  "high",
		Status:   models.SOSActive,
		Location: models.Location{Lat: 41.0, Lng: 28.9, City: "istanbul"},
	}
	require.NoError(t, SaveSOS(a))
	b := a
	b.ID = "s2"
	b.User = "bob"
	b.Status = models.SOSResolved
	b.Location.City = "ankara"
	require.NoError(t, SaveSOS(b))

	got, err := GetSOS("s1")
	require.NoError(t, err)
	require.Equal(t, "alice", got.User)

	active, err := ListSOS(models.SOSActive, "", 0)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "s1", active[0].ID)

	ankara, err := ListSOS("", "ankara", 0)
	require.NoError(t, err)
	require.Len(t, ankara, 1)
	require.Equal(t, "s2", ankara[0].ID)

	mine, err := ListSOSByUser("alice")
	require.NoError(t, err)
	require.Len(t, mine, 1)

	require.NoError(t, DeleteSOS(b))
	_, err = GetSOS("s2")
	require.Error(t, err)
	mine, err = ListSOSByUser("bob")
	require.NoError(t, err)
	require.Empty(t, mine)
}

func TestNextIncidentPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Open(dir))
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	a, err := NextIncident(now)
	require.NoError(t, err)
	require.Equal(t, "20260830-000001", a)
	b, err := NextIncident(now)
	require.NoError(t, err)
	require.Equal(t, "20260830-000002", b)

	// counter survives a restart
	require.NoError(t, Close())
	require.NoError(t, Open(dir))
	t.Cleanup(func() { _ = Close() })
	c, err := NextIncident(now)
	require.NoError(t, err)
	require.Equal(t, "20260830-000003", c)

	// each day starts its own counter
	d, err := NextIncident(now.Add(24 * time.Hour))
	require.NoError(t, err)
	require.Equal(t, "20260831-000001", d)
}

func TestProfileRoundTrip(t *testing.T) {
	openTestStore(t)
	p := models.Profile{ID: "u1", Name: "Alice", Role: models.RoleUser}
	require.NoError(t, SaveProfile(p))

	got, err := GetProfile("u1")
	require.NoError(t, err)
	require.Equal(t, "Alice", got.Name)

	_, err = GetProfile("missing")
	require.Error(t, err)

	require.NoError(t, SaveProfile(models.Profile{ID: "u2", Role: models.RoleEmployee}))
	all, err := ListProfiles()
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestReportRoundTrip(t *testing.T) {
	openTestStore(t)
	r := models.Report{ID: "r1", Reporter: "alice", TargetKind: models.TargetUser, TargetID: "bob", Flag: "spam", Status: models.ReportOpen}
	require.NoError(t, SaveReport(r))
	r2 := r
	r2.ID = "r2"
	r2.Status = models.ReportReviewed
	require.NoError(t, SaveReport(r2))

	open, err := ListReports(models.ReportOpen)
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, "r1", open[0].ID)

	all, err := ListReports("")
	require.NoError(t, err)
	require.Len(t, all, 2)

	require.NoError(t, DeleteReport("r2"))
	_, err = GetReport("r2")
	require.Error(t, err)
}
