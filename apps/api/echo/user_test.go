package echoapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/matokeo/apps/api/echo"
	"github.com/trezcool/matokeo/core/user"
)

func Test_userApi_login(t *testing.T) {
	srv := setup(t)

	usr := createUser(t, "User", "awe", "awe@test.cd", "LePass!", nil, true)
	naughty := createUser(t, "N Dog", "ndog", "ndog@test.cd", "LePass!", nil, false)

	login := func(uname, pwd string) []byte {
		return marchallObj(t, LoginRequest{Username: uname, Password: pwd})
	}

	tests := []httpTest{
		{
			name: "Fields required", method: http.MethodPost, path: "/v1/users/login", body: login("", ""),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "this field is required", "password": "this field is required"}),
		},
		{
			name: "Unknown user", method: http.MethodPost, path: "/v1/users/login", body: login("lol", "lol"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "Wrong password", method: http.MethodPost, path: "/v1/users/login", body: login(usr.Username, "lol"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "Deactivated account", method: http.MethodPost, path: "/v1/users/login", body: login(naughty.Username, "LePass!"),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("Login", func(t *testing.T) {
		for _, uname := range []string{usr.Username, usr.Email} {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", login(uname, "LePass!"))
			srv.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)

			var resp LoginResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("json.Unmarshal() failed: %v", err)
			}
			assert.NotEmpty(t, resp.Token)
		}

		refreshed, err := usrRepo.GetUserByID(context.Background(), usr.ID)
		if err != nil {
			t.Fatalf("GetUserByID() failed: %v", err)
		}
		assert.False(t, refreshed.LastLogin.IsZero(), "lastLogin should be set")
	})
}

func Test_userApi_query(t *testing.T) {
	srv := setup(t)

	usr := createUser(t, "User", "awe", "awe@test.cd", "", nil, true)
	student := createUser(t, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	teacher := createUser(t, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	admin := createUser(t, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	adminToken := getToken(t, admin)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required (student)", path: "/v1/users", token: getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
		{
			name: "Admin required (teacher)", path: "/v1/users", token: getToken(t, teacher),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
		{
			name: "Get all", path: "/v1/users", token: adminToken, wantCode: http.StatusOK,
			wantData: marchallList(t, usr, student, teacher, admin),
		},
		{
			name: "search", path: "/v1/users?search=hero", token: adminToken, wantCode: http.StatusOK,
			wantData: marchallList(t, student),
		},
		{
			name: "filter by role", path: "/v1/users?role=" + user.RoleTeacher, token: adminToken, wantCode: http.StatusOK,
			wantData: marchallList(t, teacher),
		},
		{
			name: "Roles", path: "/v1/users/roles", token: adminToken, wantCode: http.StatusOK,
			wantData: marchallObj(t, user.Roles),
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

func Test_userApi_retrieve(t *testing.T) {
	srv := setup(t)

	usr := createUser(t, "User", "awe", "awe@test.cd", "", nil, true)
	other := createUser(t, "Other", "other1", "other@test.cd", "", nil, true)
	admin := createUser(t, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users/" + usr.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Get self", path: "/v1/users/" + usr.ID, token: getToken(t, usr),
			wantCode: http.StatusOK, wantData: marchallObj(t, usr),
		},
		{
			name: "Cannot get others", path: "/v1/users/" + other.ID, token: getToken(t, usr),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "Admin gets any", path: "/v1/users/" + other.ID, token: getToken(t, admin),
			wantCode: http.StatusOK, wantData: marchallObj(t, other),
		},
		{
			name: "Admin not found", path: "/v1/users/404", token: getToken(t, admin),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
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

func Test_userApi_update(t *testing.T) {
	srv := setup(t)

	usr := createUser(t, "User", "awe", "awe@test.cd", "", nil, true)
	admin := createUser(t, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	t.Run("Self cannot change roles", func(t *testing.T) {
		body := marchallObj(t, user.UpdateUser{Roles: []string{user.RoleAdmin}})
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+usr.ID, getToken(t, usr), body)
		srv.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied)}, rec)
	})

	t.Run("Self updates name", func(t *testing.T) {
		body := marchallObj(t, user.UpdateUser{Name: "New Name"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+usr.ID, getToken(t, usr), body)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var updated user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
			t.Fatalf("json.Unmarshal() failed: %v", err)
		}
		assert.Equal(t, "New Name", updated.Name)
		assert.Equal(t, usr.Username, updated.Username)
	})

	t.Run("Admin deactivates", func(t *testing.T) {
		isActive := false
		body := marchallObj(t, user.UpdateUser{IsActive: &isActive})
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+usr.ID, getToken(t, admin), body)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		var updated user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
			t.Fatalf("json.Unmarshal() failed: %v", err)
		}
		assert.False(t, updated.IsActive)
	})
}

func Test_userApi_destroy(t *testing.T) {
	srv := setup(t)

	usr := createUser(t, "User", "awe", "awe@test.cd", "", nil, true)
	admin := createUser(t, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	adminToken := getToken(t, admin)

	t.Run("Admin required", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+usr.ID, getToken(t, usr))
		srv.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied)}, rec)
	})

	t.Run("No suicide", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+admin.ID, adminToken)
		srv.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied)}, rec)
	})

	t.Run("Destroy", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+usr.ID, adminToken)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		if _, err := usrRepo.GetUserByID(context.Background(), usr.ID); err != user.ErrNotFound {
			t.Errorf("GetUserByID() error = %v, want %v", err, user.ErrNotFound)
		}
	})
}
