package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/matokeo/apps/api/echo"
	"github.com/trezcool/matokeo/core/result"
	"github.com/trezcool/matokeo/core/user"
)

func Test_resultApi_query(t *testing.T) {
	srv := setup(t)

	studentUsr := createUser(t, "Asha Juma", "ashaju", "asha@test.cd", "", []string{user.RoleStudent}, true)
	orphanUsr := createUser(t, "No Record", "norecord", "norecord@test.cd", "", []string{user.RoleStudent}, true)
	teacher := createUser(t, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	admin := createUser(t, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	std1 := createStudent(t, "Asha Juma", "cs001", 1, studentUsr.ID)
	std2 := createStudent(t, "Neema Bakari", "cs002", 1, "")

	pub1 := createResult(t, std1, 2026, 3.6, 180, "A", result.StatusPublished)
	pub2 := createResult(t, std2, 2026, 3.8, 190, "A", result.StatusPublished)
	pend1 := createResult(t, std1, 2025, 3.0, 150, "B+", result.StatusPending)

	paginated := func(results ...result.Result) PaginatedResults {
		return PaginatedResults{Results: results, Total: len(results), Page: 1, Limit: 50}
	}

	tests := []httpTest{
		{name: "Auth required", path: "/v1/results", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Staff get all", path: "/v1/results", token: getToken(t, teacher), wantCode: http.StatusOK,
			wantData: marchallObj(t, paginated(pub2, pub1, pend1)),
		},
		{
			name: "Filter by status", path: "/v1/results?status=pending", token: getToken(t, admin), wantCode: http.StatusOK,
			wantData: marchallObj(t, paginated(pend1)),
		},
		{
			name: "Filter by exam_year", path: "/v1/results?exam_year=2026", token: getToken(t, admin), wantCode: http.StatusOK,
			wantData: marchallObj(t, paginated(pub2, pub1)),
		},
		{
			name: "Student sees only own published", path: "/v1/results", token: getToken(t, studentUsr), wantCode: http.StatusOK,
			wantData: marchallObj(t, paginated(pub1)),
		},
		{
			name: "Student filters cannot widen access", path: "/v1/results?status=pending&student_id=" + std2.ID,
			token: getToken(t, studentUsr), wantCode: http.StatusOK,
			wantData: marchallObj(t, paginated(pub1)),
		},
		{
			name: "Student account without record", path: "/v1/results", token: getToken(t, orphanUsr),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_resultApi_retrieve(t *testing.T) {
	srv := setup(t)

	studentUsr := createUser(t, "Asha Juma", "ashaju", "asha@test.cd", "", []string{user.RoleStudent}, true)
	teacher := createUser(t, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)

	std1 := createStudent(t, "Asha Juma", "cs001", 1, studentUsr.ID)
	std2 := createStudent(t, "Neema Bakari", "cs002", 1, "")

	ownPub := createResult(t, std1, 2026, 3.6, 180, "A", result.StatusPublished)
	ownPend := createResult(t, std1, 2025, 3.0, 150, "B+", result.StatusPending)
	otherPub := createResult(t, std2, 2026, 3.8, 190, "A", result.StatusPublished)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/results/" + ownPub.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Not found", path: "/v1/results/404", token: getToken(t, teacher),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "Student gets own published", path: "/v1/results/" + ownPub.ID, token: getToken(t, studentUsr),
			wantCode: http.StatusOK, wantData: marchallObj(t, ownPub),
		},
		{
			name: "Student cannot see own pending", path: "/v1/results/" + ownPend.ID, token: getToken(t, studentUsr),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "Student cannot see others", path: "/v1/results/" + otherPub.ID, token: getToken(t, studentUsr),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "Staff get pending", path: "/v1/results/" + ownPend.ID, token: getToken(t, teacher),
			wantCode: http.StatusOK, wantData: marchallObj(t, ownPend),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_resultApi_publish(t *testing.T) {
	srv := setup(t)
	ctx := context.Background()

	studentUsr := createUser(t, "Asha Juma", "ashaju", "asha@test.cd", "", []string{user.RoleStudent}, true)
	teacher := createUser(t, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	admin := createUser(t, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	std1 := createStudent(t, "Asha Juma", "cs001", 1, studentUsr.ID)
	std2 := createStudent(t, "Neema Bakari", "cs002", 1, "")

	res1 := createResult(t, std1, 2026, 3.6, 180, "A", result.StatusPending)
	res2 := createResult(t, std2, 2026, 3.8, 190, "A", result.StatusPending)

	body := marchallObj(t, result.PublishFilter{Semester: 1, ExamYear: 2026})

	tests := []httpTest{
		{
			name: "Auth required", method: http.MethodPost, path: "/v1/results/publish", body: body,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Admin required (student)", method: http.MethodPost, path: "/v1/results/publish", body: body,
			token: getToken(t, studentUsr), wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
		{
			name: "Admin required (teacher)", method: http.MethodPost, path: "/v1/results/publish", body: body,
			token: getToken(t, teacher), wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
		{
			name: "Publish", method: http.MethodPost, path: "/v1/results/publish", body: body,
			token: getToken(t, admin), wantCode: http.StatusOK, wantData: marchallObj(t, PublishResponse{Published: 2}),
		},
		{
			name: "Republish is a no-op", method: http.MethodPost, path: "/v1/results/publish", body: body,
			token: getToken(t, admin), wantCode: http.StatusOK, wantData: marchallObj(t, PublishResponse{Published: 0}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// published rows carry the approver and ranks follow GPA order
	wantRanks := map[string]int{res2.ID: 1, res1.ID: 2}
	for _, id := range []string{res1.ID, res2.ID} {
		res, err := resRepo.GetResultByID(ctx, id)
		if err != nil {
			t.Fatalf("GetResultByID() failed: %v", err)
		}
		assert.Equal(t, result.StatusPublished, res.Status)
		assert.Equal(t, admin.ID, res.ApprovedBy.String)
		assert.True(t, res.PublishedAt.Valid)
		assert.Equal(t, wantRanks[id], int(res.Rank.Int))
	}
}

func Test_resultApi_rerank(t *testing.T) {
	srv := setup(t)
	ctx := context.Background()

	teacher := createUser(t, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)

	std1 := createStudent(t, "Asha Juma", "cs001", 1, "")
	std2 := createStudent(t, "Neema Bakari", "cs002", 1, "")
	res1 := createResult(t, std1, 2026, 3.6, 180, "A", result.StatusPublished)
	res2 := createResult(t, std2, 2026, 3.8, 190, "A", result.StatusPublished)

	t.Run("Semester required", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/results/rerank?exam_year=2026", getToken(t, teacher))
		srv.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"semester": "a valid semester is required"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Rerank", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/results/rerank?semester=1&exam_year=2026", getToken(t, teacher))
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		wantRanks := map[string]int{res2.ID: 1, res1.ID: 2}
		for _, id := range []string{res1.ID, res2.ID} {
			res, err := resRepo.GetResultByID(ctx, id)
			if err != nil {
				t.Fatalf("GetResultByID() failed: %v", err)
			}
			assert.Equal(t, wantRanks[id], int(res.Rank.Int))
		}
	})
}

func Test_resultApi_stats(t *testing.T) {
	srv := setup(t)

	studentUsr := createUser(t, "Asha Juma", "ashaju", "asha@test.cd", "", []string{user.RoleStudent}, true)
	teacher := createUser(t, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)

	std1 := createStudent(t, "Asha Juma", "cs001", 1, studentUsr.ID)
	std2 := createStudent(t, "Neema Bakari", "cs002", 1, "")
	std3 := createStudent(t, "Joseph Mushi", "cs003", 1, "")

	res1 := createResult(t, std1, 2026, 3.6, 180, "A", result.StatusPublished)
	res2 := createResult(t, std2, 2026, 3.8, 190, "A", result.StatusPublished)
	createResult(t, std3, 2026, 2.8, 120, "B", result.StatusPending)

	createMark(t, std1, "Mathematics", 80, 100, 3, 2026)
	createMark(t, std2, "Mathematics", 60, 100, 3, 2026)
	createMark(t, std1, "Physics", 45, 50, 2, 2026)

	teacherToken := getToken(t, teacher)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/results/stats/grades", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Staff required", path: "/v1/results/stats/grades?semester=1&exam_year=2026", token: getToken(t, studentUsr),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
		{
			name: "Grade distribution", path: "/v1/results/stats/grades?semester=1&exam_year=2026", token: teacherToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, map[string]int{"A": 2, "B": 1}),
		},
		{
			name: "Grades params required", path: "/v1/results/stats/grades", token: teacherToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"semester": "a valid semester is required"}),
		},
		{
			name: "Top results", path: "/v1/results/stats/top?semester=1&exam_year=2026&n=2", token: teacherToken,
			wantCode: http.StatusOK, wantData: marchallList(t, res2, res1),
		},
		{
			name: "Subject averages", path: "/v1/results/stats/subjects?exam_year=2026", token: teacherToken,
			wantCode: http.StatusOK,
			wantData: marchallList(t,
				result.SubjectAverage{SubjectName: "Mathematics", AvgMarks: 70, AvgPercent: 70, Count: 2},
				result.SubjectAverage{SubjectName: "Physics", AvgMarks: 45, AvgPercent: 90, Count: 1},
			),
		},
		{
			name: "Subjects exam_year required", path: "/v1/results/stats/subjects", token: teacherToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"exam_year": "a valid exam year is required"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
