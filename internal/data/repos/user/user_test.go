package user

import (
	"context"
	"testing"

	"github.com/yungbote/rastion-hub/internal/data/repos/testutil"
	"github.com/yungbote/rastion-hub/internal/domain/user"
	"github.com/yungbote/rastion-hub/internal/platform/dbctx"
)

func TestUserRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewUserRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	u := &user.User{GitHubID: "583231", Username: "octocat", AvatarURL: "https://a/1"}
	if err := repo.Create(dbc, u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID == 0 {
		t.Fatalf("Create: expected id to be assigned")
	}

	got, err := repo.GetByID(dbc, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.Username != "octocat" {
		t.Fatalf("GetByID: unexpected result: %+v", got)
	}

	missing, err := repo.GetByID(dbc, u.ID+100)
	if err != nil {
		t.Fatalf("GetByID missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("GetByID missing: want=nil got=%+v", missing)
	}

	byGH, err := repo.GetByGitHubID(dbc, "583231")
	if err != nil {
		t.Fatalf("GetByGitHubID: %v", err)
	}
	if byGH == nil || byGH.ID != u.ID {
		t.Fatalf("GetByGitHubID: unexpected result: %+v", byGH)
	}

	if err := repo.UpdateProfile(dbc, u.ID, "octo", ""); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	list, err := repo.GetByIDs(dbc, []uint{u.ID})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(list) != 1 || list[0].Username != "octo" || list[0].AvatarURL != "" {
		t.Fatalf("GetByIDs after update: unexpected result: %+v", list)
	}

	empty, err := repo.GetByIDs(dbc, nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("GetByIDs(nil): want empty got=%v err=%v", empty, err)
	}
}
