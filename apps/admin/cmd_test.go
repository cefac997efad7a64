package main

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io"
	"log"
	"net/mail"
	"strconv"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/matokeo/core"
	"github.com/trezcool/matokeo/core/mark"
	"github.com/trezcool/matokeo/core/result"
	"github.com/trezcool/matokeo/core/student"
	"github.com/trezcool/matokeo/core/user"
	emailsvc "github.com/trezcool/matokeo/services/email"
	dummydb "github.com/trezcool/matokeo/storage/database/dummy"
)

var (
	usrRepo user.Repository
	stdRepo student.Repository
	mrkRepo mark.Repository
	resRepo result.Repository
)

func setup(t *testing.T) *commandLine {
	// set up DB & repos
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	usrRepo = dummydb.NewUserRepository(db)
	stdRepo = dummydb.NewStudentRepository(db)
	mrkRepo = dummydb.NewMarkRepository(db)
	resRepo = dummydb.NewResultRepository(db)

	conf := &core.Config{
		TestMode:         true,
		AppName:          "Matokeo",
		DefaultFromEmail: mail.Address{Name: "Matokeo", Address: "noreply@localhost"},
	}
	logger = log.New(io.Discard, "TEST : ", log.LstdFlags)

	// start CLI
	return &commandLine{
		db:      &sqlx.DB{},
		conf:    conf,
		usrRepo: usrRepo,
		resSvc: result.NewService(
			resRepo,
			mrkRepo,
			stdRepo,
			emailsvc.NewConsoleServiceMock(conf),
			conf,
			result.PolicyCompetition,
		),
	}
}

func createUser(t *testing.T, name, uname, email, pwd string, roles []string, isActive bool) user.User {
	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		IsActive:  isActive,
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, fsys embed.FS, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)

	existing := createUser(t, "User", "awe", "awe@test.cd", "mdr", nil, false)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "username but no email", args: []string{"adduser", "-username", "hero"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-username", "hero", "-email", "hero@test.cd"}, wantErr: errHelp},
		{name: "create", args: []string{"adduser", "-username", "hero", "-email", "hero@test.cd"}, extra: extra{pwd: "lol"}},
		{name: "create admin", args: []string{"adduser", "-username", "boss", "-email", "boss@test.cd", "-admin"}, extra: extra{pwd: "lol"}},
		{name: "update reactivates", args: []string{"adduser", "-username", existing.Username, "-email", existing.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
			}
		})
	}

	ctx := context.Background()

	hero, err := usrRepo.GetUserByUsername(ctx, "hero")
	if err != nil {
		t.Fatalf("GetUserByUsername() failed: %v", err)
	}
	if !hero.IsActive {
		t.Error("created user should be active")
	}
	if err = hero.CheckPassword("lol"); err != nil {
		t.Error("failed to set new user's password")
	}
	if hero.IsAdmin() {
		t.Error("user should not be an admin")
	}

	boss, err := usrRepo.GetUserByUsername(ctx, "boss")
	if err != nil {
		t.Fatalf("GetUserByUsername() failed: %v", err)
	}
	if !boss.IsAdmin() {
		t.Error("user should be an admin")
	}

	refreshed, err := usrRepo.GetUserByID(ctx, existing.ID)
	if err != nil {
		t.Fatalf("GetUserByID() failed: %v", err)
	}
	if !refreshed.IsActive {
		t.Error("updated user should be reactivated")
	}
	if bytes.Equal(refreshed.PasswordHash, existing.PasswordHash) {
		t.Error("failed to update password")
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := createUser(t, "User", "awe", "awe@test.cd", "mdr", nil, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUserByID(context.Background(), usr.ID)
				if err != nil {
					t.Fatalf("GetUserByID() failed: %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_publishResults(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	admin := createUser(t, "Admin", "admin", "admin@test.cd", "mdr", []string{user.RoleAdmin}, true)
	teacher := createUser(t, "Teacher", "teacher", "teacher@test.cd", "mdr", []string{user.RoleTeacher}, true)

	now := time.Now().UTC()
	std, err := stdRepo.CreateStudent(ctx, student.Student{
		Name:          "Asha Juma",
		RollNo:        "cs001",
		Program:       "BSc CS",
		Semester:      1,
		AdmissionYear: 2024,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	res, err := resRepo.UpsertResult(ctx, result.Result{
		StudentID:   std.ID,
		StudentName: std.Name,
		RollNo:      std.RollNo,
		Program:     std.Program,
		Semester:    std.Semester,
		ExamYear:    2026,
		TotalMarks:  180,
		GPA:         3.6,
		Grade:       "A",
		Status:      result.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("UpsertResult() failed: %v", err)
	}

	tests := []cliTest{
		{name: "no approver", args: []string{"publishresults", "-semester", "1", "-year", "2026"}, wantErr: errHelp},
		{name: "approver not found", args: []string{"publishresults", "-approver", "lol"}, wantErr: user.ErrNotFound},
		{
			name: "approver not admin", args: []string{"publishresults", "-approver", teacher.Username},
			wantErrStr: fmt.Sprintf("user %q is not an admin", teacher.Username),
		},
		{name: "publish", args: []string{"publishresults", "-semester", "1", "-year", "2026", "-approver", admin.Email}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}

	published, err := resRepo.GetResultByID(ctx, res.ID)
	if err != nil {
		t.Fatalf("GetResultByID() failed: %v", err)
	}
	if published.Status != result.StatusPublished {
		t.Errorf("result status = %v, want %v", published.Status, result.StatusPublished)
	}
	if published.ApprovedBy.String != admin.ID {
		t.Errorf("result approver = %v, want %v", published.ApprovedBy.String, admin.ID)
	}
	if !published.Rank.Valid || published.Rank.Int != 1 {
		t.Errorf("result rank = %v, want 1", published.Rank)
	}
}