package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

func newLeadUseCase() (*LeadUseCase, *MockLeadRepository, *recordingPublisher) {
	repo := new(MockLeadRepository)
	events := &recordingPublisher{}
	return NewLeadUseCase(repo, events, newClock(), zap.NewNop()), repo, events
}

func intPtr(v int) *int { return &v }
func strPtr(v string) *string { return &v }
func int64Ptr(v int64) *int64 { return &v }
func timePtr(t time.Time) *time.Time { return &t }

func TestLeadUseCase_Create(t *testing.T) {
	uc, repo, events := newLeadUseCase()
	repo.On("EmailTaken", mock.Anything, "u1", "ada@example.com", mock.AnythingOfType("string")).Return(false, nil)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*entity.Lead")).Return(nil)

	lead, err := uc.Create(context.Background(), "u1", LeadInput{
		FirstName: "  Ada ",
		LastName:  "Lovelace",
		Email:     "Ada@Example.com",
		Source:    "referral",
		Score:     intPtr(40),
		Value:     int64Ptr(150000),
		Tags:      []string{"VIP", "vip", " fintech "},
	})
	require.NoError(t, err)

	assert.Equal(t, "Ada", lead.FirstName)
	assert.Equal(t, "ada@example.com", lead.Email)
	assert.Equal(t, entity.SourceReferral, lead.Source)
	assert.Equal(t, entity.StageNew, lead.Stage)
	assert.Equal(t, 3, lead.Priority)
	assert.Equal(t, entity.Tags{"vip", "fintech"}, lead.Tags)
	assert.Equal(t, base, lead.CreatedAt)
	assert.Nil(t, lead.ConvertedAt)
	assert.Equal(t, []entity.EventType{entity.EventLeadCreated}, events.types())
	repo.AssertExpectations(t)
}

func TestLeadUseCase_Create_Converted(t *testing.T) {
	uc, repo, _ := newLeadUseCase()
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	lead, err := uc.Create(context.Background(), "u1", LeadInput{Company: "Acme", Stage: "converted"})
	require.NoError(t, err)
	assert.Equal(t, entity.StageConverted, lead.Stage)
	require.NotNil(t, lead.ConvertedAt)
	assert.Equal(t, base, *lead.ConvertedAt)
	repo.AssertNotCalled(t, "EmailTaken", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLeadUseCase_Create_Validation(t *testing.T) {
	uc, repo, events := newLeadUseCase()

	_, err := uc.Create(context.Background(), "u1", LeadInput{
		Email:    "not-an-email",
		Score:    intPtr(101),
		Priority: intPtr(9),
		Stage:    "WON",
	})
	requireCode(t, err, CodeValidation)

	var de *DomainError
	require.ErrorAs(t, err, &de)
	fields := map[string]bool{}
	for _, d := range de.Details {
		fields[d.Field] = true
	}
	assert.True(t, fields["firstName"])
	assert.True(t, fields["email"])
	assert.True(t, fields["score"])
	assert.True(t, fields["priority"])
	assert.True(t, fields["stage"])

	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	assert.Empty(t, events.types())
}

func TestLeadUseCase_Create_DuplicateEmail(t *testing.T) {
	uc, repo, _ := newLeadUseCase()
	repo.On("EmailTaken", mock.Anything, "u1", "ada@example.com", mock.Anything).Return(true, nil)

	_, err := uc.Create(context.Background(), "u1", LeadInput{FirstName: "Ada", Email: "ada@example.com"})
	requireCode(t, err, CodeConflict)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestLeadUseCase_Create_RepositoryError(t *testing.T) {
	uc, repo, events := newLeadUseCase()
	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	_, err := uc.Create(context.Background(), "u1", LeadInput{FirstName: "Ada"})
	require.Error(t, err)
	assert.True(t, IsTechnicalError(err))
	assert.Empty(t, events.types())
}

func TestLeadUseCase_Get_NotFound(t *testing.T) {
	uc, repo, _ := newLeadUseCase()
	repo.On("FindByID", mock.Anything, "u1", "missing").Return(nil, entity.ErrNotFound)

	_, err := uc.Get(context.Background(), "u1", "missing")
	requireCode(t, err, CodeNotFound)
}

func TestLeadUseCase_List(t *testing.T) {
	uc, repo, _ := newLeadUseCase()
	leads := []*entity.Lead{entity.NewLead("u1", base)}
	repo.On("List", mock.Anything, mock.Anything).Return(leads, 45, nil)

	res, err := uc.List(context.Background(), "u1", LeadListInput{
		Stages:   []string{"new", "contacted"},
		Search:   " ada ",
		Tag:      "VIP",
		Limit:    20,
		Offset:   20,
		Archived: "all",
	})
	require.NoError(t, err)

	assert.Equal(t, 45, res.Total)
	assert.Equal(t, 2, res.Page)
	assert.Equal(t, 3, res.TotalPages)
	assert.Equal(t, 20, res.PageSize)

	filter := repo.Calls[0].Arguments.Get(1).(entity.LeadFilter)
	assert.Equal(t, []entity.LeadStage{entity.StageNew, entity.StageContacted}, filter.Stages)
	assert.Equal(t, "ada", filter.Search)
	assert.Equal(t, "vip", filter.Tag)
	assert.Nil(t, filter.Archived)
	assert.True(t, filter.Desc)
}

func TestLeadUseCase_List_Defaults(t *testing.T) {
	uc, repo, _ := newLeadUseCase()
	repo.On("List", mock.Anything, mock.Anything).Return(nil, 0, nil)

	res, err := uc.List(context.Background(), "u1", LeadListInput{Sort: "score", Limit: 500})
	require.NoError(t, err)
	assert.NotNil(t, res.Items)
	assert.Equal(t, entity.MaxPageSize, res.PageSize)

	filter := repo.Calls[0].Arguments.Get(1).(entity.LeadFilter)
	require.NotNil(t, filter.Archived)
	assert.False(t, *filter.Archived)
	assert.Equal(t, "score", filter.Sort)
	assert.False(t, filter.Desc)
}

func TestLeadUseCase_List_BadRequest(t *testing.T) {
	uc, _, _ := newLeadUseCase()
	ctx := context.Background()

	tests := []struct {
		name  string
		input LeadListInput
	}{
		{"stage", LeadListInput{Stages: []string{"WON"}}},
		{"source", LeadListInput{Sources: []string{"TV"}}},
		{"sort", LeadListInput{Sort: "email"}},
		{"order", LeadListInput{Order: "sideways"}},
		{"archived", LeadListInput{Archived: "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.List(ctx, "u1", tt.input)
			requireCode(t, err, CodeBadRequest)
		})
	}
}

func TestLeadUseCase_Update_StageChange(t *testing.T) {
	uc, repo, events := newLeadUseCase()
	lead := entity.NewLead("u1", base.Add(-time.Hour))
	lead.FirstName = "Ada"
	repo.On("FindByID", mock.Anything, "u1", lead.ID).Return(lead, nil)
	repo.On("Update", mock.Anything, lead).Return(nil)

	got, err := uc.Update(context.Background(), "u1", lead.ID, LeadPatch{
		Stage: strPtr("converted"),
		Notes: strPtr("signed"),
	})
	require.NoError(t, err)

	assert.Equal(t, entity.StageConverted, got.Stage)
	assert.Equal(t, "signed", got.Notes)
	require.NotNil(t, got.ConvertedAt)
	assert.Equal(t, base, got.UpdatedAt)

	assert.Equal(t, []entity.EventType{entity.EventLeadStageChanged, entity.EventLeadUpdated}, events.types())
	changed := events.events[0]
	assert.Equal(t, "NEW", changed.Data["from"])
	assert.Equal(t, "CONVERTED", changed.Data["to"])
	assert.Equal(t, "Ada", changed.Data["name"])
}

func TestLeadUseCase_Update_SameStage(t *testing.T) {
	uc, repo, events := newLeadUseCase()
	lead := entity.NewLead("u1", base)
	lead.FirstName = "Ada"
	repo.On("FindByID", mock.Anything, "u1", lead.ID).Return(lead, nil)
	repo.On("Update", mock.Anything, lead).Return(nil)

	_, err := uc.Update(context.Background(), "u1", lead.ID, LeadPatch{Stage: strPtr("NEW")})
	require.NoError(t, err)
	assert.Equal(t, []entity.EventType{entity.EventLeadUpdated}, events.types())
}

func TestLeadUseCase_Update_Archived(t *testing.T) {
	uc, repo, _ := newLeadUseCase()
	lead := entity.NewLead("u1", base)
	lead.IsArchived = true
	repo.On("FindByID", mock.Anything, "u1", lead.ID).Return(lead, nil)

	_, err := uc.Update(context.Background(), "u1", lead.ID, LeadPatch{Notes: strPtr("x")})
	requireCode(t, err, CodeArchived)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestLeadUseCase_Update_InvalidStage(t *testing.T) {
	uc, repo, _ := newLeadUseCase()
	lead := entity.NewLead("u1", base)
	lead.FirstName = "Ada"
	repo.On("FindByID", mock.Anything, "u1", lead.ID).Return(lead, nil)

	_, err := uc.Update(context.Background(), "u1", lead.ID, LeadPatch{Stage: strPtr("won")})
	requireCode(t, err, CodeValidation)
}

func TestLeadUseCase_ArchiveRestore(t *testing.T) {
	ctx := context.Background()
	uc, repo, events := newLeadUseCase()
	lead := entity.NewLead("u1", base)
	lead.FirstName = "Ada"
	lead.Email = "ada@example.com"
	repo.On("FindByID", mock.Anything, "u1", lead.ID).Return(lead, nil)
	repo.On("Update", mock.Anything, lead).Return(nil)

	require.NoError(t, uc.Archive(ctx, "u1", lead.ID))
	assert.True(t, lead.IsArchived)

	// archiving twice is a no-op
	require.NoError(t, uc.Archive(ctx, "u1", lead.ID))
	repo.AssertNumberOfCalls(t, "Update", 1)

	repo.On("EmailTaken", mock.Anything, "u1", "ada@example.com", lead.ID).Return(true, nil).Once()
	_, err := uc.Restore(ctx, "u1", lead.ID)
	requireCode(t, err, CodeConflict)
	assert.True(t, lead.IsArchived)

	repo.On("EmailTaken", mock.Anything, "u1", "ada@example.com", lead.ID).Return(false, nil)
	restored, err := uc.Restore(ctx, "u1", lead.ID)
	require.NoError(t, err)
	assert.False(t, restored.IsArchived)

	assert.Equal(t, []entity.EventType{entity.EventLeadArchived, entity.EventLeadUpdated}, events.types())
}

func TestLeadUseCase_BulkUpdateStage(t *testing.T) {
	uc, repo, events := newLeadUseCase()
	a := entity.NewLead("u1", base)
	b := entity.NewLead("u1", base)
	b.Stage = entity.StageQualified
	archived := entity.NewLead("u1", base)
	archived.IsArchived = true

	repo.On("FindByID", mock.Anything, "u1", a.ID).Return(a, nil)
	repo.On("FindByID", mock.Anything, "u1", b.ID).Return(b, nil)
	repo.On("FindByID", mock.Anything, "u1", archived.ID).Return(archived, nil)
	repo.On("FindByID", mock.Anything, "u1", "ghost").Return(nil, entity.ErrNotFound)
	repo.On("Update", mock.Anything, a).Return(nil)

	out, err := uc.BulkUpdateStage(context.Background(), "u1", BulkStageInput{
		IDs:   []string{a.ID, "ghost", b.ID, archived.ID},
		Stage: "qualified",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{a.ID, b.ID}, out.Updated)
	assert.Equal(t, []string{"ghost", archived.ID}, out.NotFound)
	assert.Equal(t, entity.StageQualified, a.Stage)
	repo.AssertNumberOfCalls(t, "Update", 1)
	assert.Equal(t, []entity.EventType{entity.EventLeadStageChanged}, events.types())
}

func TestLeadUseCase_BulkUpdateStage_Validation(t *testing.T) {
	uc, _, _ := newLeadUseCase()
	ctx := context.Background()

	_, err := uc.BulkUpdateStage(ctx, "u1", BulkStageInput{Stage: "NEW"})
	requireCode(t, err, CodeValidation)

	ids := make([]string, entity.MaxPageSize+1)
	for i := range ids {
		ids[i] = "id"
	}
	_, err = uc.BulkUpdateStage(ctx, "u1", BulkStageInput{IDs: ids, Stage: "NEW"})
	requireCode(t, err, CodeValidation)

	_, err = uc.BulkUpdateStage(ctx, "u1", BulkStageInput{IDs: []string{"a"}, Stage: "WON"})
	requireCode(t, err, CodeValidation)
}

func TestLeadUseCase_PublishFailureDoesNotFailWrite(t *testing.T) {
	repo := new(MockLeadRepository)
	events := &recordingPublisher{err: errors.New("bus down")}
	uc := NewLeadUseCase(repo, events, newClock(), zap.NewNop())
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := uc.Create(context.Background(), "u1", LeadInput{FirstName: "Ada"})
	require.NoError(t, err)
	assert.Len(t, events.types(), 1)
}

func newConversationUseCase() (*ConversationUseCase, *MockConversationRepository, *MockLeadRepository, *recordingPublisher) {
	repo := new(MockConversationRepository)
	leads := new(MockLeadRepository)
	events := &recordingPublisher{}
	return NewConversationUseCase(repo, leads, events, newClock(), zap.NewNop()), repo, leads, events
}

func TestConversationUseCase_LogConversation_AdvancesNewLead(t *testing.T) {
	uc, repo, leads, events := newConversationUseCase()
	lead := entity.NewLead("u1", base.Add(-48*time.Hour))
	lead.FirstName = "Ada"
	leads.On("FindByID", mock.Anything, "u1", lead.ID).Return(lead, nil)
	leads.On("Update", mock.Anything, lead).Return(nil)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*entity.Conversation")).Return(nil)

	occurred := base.Add(-time.Hour)
	c, err := uc.LogConversation(context.Background(), "u1", lead.ID, ConversationInput{
		Channel:    "call",
		Content:    "Discussed pricing",
		OccurredAt: &occurred,
	})
	require.NoError(t, err)

	assert.Equal(t, entity.ChannelCall, c.Channel)
	assert.Equal(t, entity.DirectionOutbound, c.Direction)
	assert.Equal(t, occurred, c.OccurredAt)
	assert.Equal(t, entity.StageContacted, lead.Stage)
	require.NotNil(t, lead.LastContactedAt)
	assert.Equal(t, occurred, *lead.LastContactedAt)
	assert.Equal(t, []entity.EventType{entity.EventConversationLogged, entity.EventLeadStageChanged}, events.types())
}

func TestConversationUseCase_LogConversation_KeepsLaterContact(t *testing.T) {
	uc, repo, leads, events := newConversationUseCase()
	lead := entity.NewLead("u1", base.Add(-48*time.Hour))
	lead.Stage = entity.StageQualified
	lead.LastContactedAt = timePtr(base.Add(-time.Minute))
	leads.On("FindByID", mock.Anything, "u1", lead.ID).Return(lead, nil)
	leads.On("Update", mock.Anything, lead).Return(nil)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)

	_, err := uc.LogConversation(context.Background(), "u1", lead.ID, ConversationInput{
		Channel:    "EMAIL",
		Direction:  "inbound",
		Content:    "Reply",
		OccurredAt: timePtr(base.Add(-time.Hour)),
	})
	require.NoError(t, err)

	assert.Equal(t, entity.StageQualified, lead.Stage)
	assert.Equal(t, base.Add(-time.Minute), *lead.LastContactedAt)
	assert.Equal(t, []entity.EventType{entity.EventConversationLogged}, events.types())
}

func TestConversationUseCase_LogConversation_Rejected(t *testing.T) {
	ctx := context.Background()
	uc, repo, leads, _ := newConversationUseCase()
	archived := entity.NewLead("u1", base)
	archived.IsArchived = true
	leads.On("FindByID", mock.Anything, "u1", archived.ID).Return(archived, nil)
	leads.On("FindByID", mock.Anything, "u1", "ghost").Return(nil, entity.ErrNotFound)

	_, err := uc.LogConversation(ctx, "u1", archived.ID, ConversationInput{Channel: "FAX", Content: "x"})
	requireCode(t, err, CodeValidation)

	_, err = uc.LogConversation(ctx, "u1", archived.ID, ConversationInput{Channel: "NOTE", Content: "   "})
	requireCode(t, err, CodeValidation)

	_, err = uc.LogConversation(ctx, "u1", archived.ID, ConversationInput{Channel: "NOTE", Content: "x", OccurredAt: timePtr(base.Add(time.Hour))})
	requireCode(t, err, CodeValidation)

	_, err = uc.LogConversation(ctx, "u1", archived.ID, ConversationInput{Channel: "NOTE", Content: "x"})
	requireCode(t, err, CodeArchived)

	_, err = uc.LogConversation(ctx, "u1", "ghost", ConversationInput{Channel: "NOTE", Content: "x"})
	requireCode(t, err, CodeNotFound)

	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestConversationUseCase_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	uc, repo, leads, events := newConversationUseCase()
	lead := entity.NewLead("u1", base)
	c := entity.NewConversation("u1", lead.ID, entity.ChannelNote, entity.DirectionOutbound, base, base)
	leads.On("FindByID", mock.Anything, "u1", lead.ID).Return(lead, nil)
	repo.On("ListByLead", mock.Anything, "u1", lead.ID, entity.Page{Limit: entity.DefaultPageSize}).
		Return([]*entity.Conversation{c}, 1, nil)
	repo.On("FindByID", mock.Anything, "u1", c.ID).Return(c, nil)
	repo.On("Delete", mock.Anything, c.ID).Return(nil)

	res, err := uc.List(ctx, "u1", lead.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, 1, res.TotalPages)

	require.NoError(t, uc.Delete(ctx, "u1", c.ID))
	require.Len(t, events.events, 1)
	assert.Equal(t, entity.EventLeadUpdated, events.events[0].Type)
	assert.Equal(t, lead.ID, events.events[0].EntityID)
	assert.Equal(t, c.ID, events.events[0].Data["conversationId"])
	assert.Equal(t, "true", events.events[0].Data["conversationDeleted"])
}
