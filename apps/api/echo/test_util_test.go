package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	. "github.com/trezcool/matokeo/apps/api/echo"
	"github.com/trezcool/matokeo/core"
	"github.com/trezcool/matokeo/core/mark"
	"github.com/trezcool/matokeo/core/result"
	"github.com/trezcool/matokeo/core/student"
	"github.com/trezcool/matokeo/core/subject"
	"github.com/trezcool/matokeo/core/user"
	emailsvc "github.com/trezcool/matokeo/services/email"
	logsvc "github.com/trezcool/matokeo/services/logger"
	dummydb "github.com/trezcool/matokeo/storage/database/dummy"
)

var (
	conf    *core.Config
	usrRepo user.Repository
	stdRepo student.Repository
	subRepo subject.Repository
	mrkRepo mark.Repository
	resRepo result.Repository
	resSvc  *result.Service

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errPermDenied   = httpErr{Error: "permission denied"}
	errNotFound     = httpErr{Error: "not found"}
)

func setup(t *testing.T) *Server {
	// set up DB & repos
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	usrRepo = dummydb.NewUserRepository(db)
	stdRepo = dummydb.NewStudentRepository(db)
	subRepo = dummydb.NewSubjectRepository(db)
	mrkRepo = dummydb.NewMarkRepository(db)
	resRepo = dummydb.NewResultRepository(db)

	conf = &core.Config{
		TestMode:  true,
		Env:       "TEST",
		AppName:   "Matokeo",
		SecretKey: "secret",
		Server: core.ServerConfig{
			JWTExpirationDelta:        1 * time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	stdSvc := student.NewService(stdRepo, conf)
	subSvc := subject.NewService(subRepo)
	resSvc = result.NewService(resRepo, mrkRepo, stdRepo, mailSvc, conf, result.PolicyCompetition)
	markSvc := mark.NewService(mrkRepo, subSvc, stdSvc, resSvc)

	validate := validator.New()
	translator := newTestTranslator(t)
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	mark.InitValidators(validate, translator)

	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "TEST : ", log.LstdFlags), conf)

	// set up server
	return NewServer(
		ServerDeps{
			Conf:       conf,
			Logger:     logger,
			UserSvc:    usrSvc,
			StudentSvc: stdSvc,
			SubjectSvc: subSvc,
			MarkSvc:    markSvc,
			ResultSvc:  resSvc,
			Validate:   validate,
			Translator: translator,
		},
	)
}

func newTestTranslator(t *testing.T) ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, ok := uni.GetTranslator("en")
	if !ok {
		t.Fatal("newTestTranslator() failed")
	}
	return translator
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

func createStudent(t *testing.T, name, rollNo string, semester int, userID string) student.Student {
	now := time.Now().UTC()
	std := student.Student{
		Name:          name,
		RollNo:        rollNo,
		Email:         rollNo + "@school.test",
		Program:       "BSc CS",
		Semester:      semester,
		AdmissionYear: 2024,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if userID != "" {
		std.UserID = null.StringFrom(userID)
	}
	std, err := stdRepo.CreateStudent(context.Background(), std)
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return std
}

func createResult(t *testing.T, std student.Student, examYear int, gpa, totalMarks float64, grade string, status result.Status) result.Result {
	now := time.Now().UTC()
	res := result.Result{
		StudentID:    std.ID,
		StudentName:  std.Name,
		RollNo:       std.RollNo,
		Program:      std.Program,
		Semester:     std.Semester,
		ExamYear:     examYear,
		TotalMarks:   totalMarks,
		TotalCredits: 5,
		GPA:          gpa,
		Grade:        grade,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if status == result.StatusPublished {
		res.PublishedAt = null.TimeFrom(now)
		res.ApprovedBy = null.StringFrom("admin")
	}
	res, err := resRepo.UpsertResult(context.Background(), res)
	if err != nil {
		t.Fatalf("createResult() failed: %v", err)
	}
	return res
}

func createMark(t *testing.T, std student.Student, subjectName string, obtained, full, credit float64, examYear int) mark.Mark {
	now := time.Now().UTC()
	m, err := mrkRepo.CreateMark(context.Background(), mark.Mark{
		StudentID:     std.ID,
		SubjectID:     "subject-" + subjectName,
		SubjectName:   subjectName,
		MarksObtained: obtained,
		FullMarks:     full,
		Credit:        credit,
		ExamType:      mark.ExamFinal,
		ExamYear:      examYear,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		t.Fatalf("createMark() failed: %v", err)
	}
	return m
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr, conf)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
