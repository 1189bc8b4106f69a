package discussion

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"discuss_go/models"
)

func newRouter(e *env) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	SetupRoutes(r.Group("/posts"), e.svc, nil)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerReplyVoteAndState(t *testing.T) {
	e := newEnv(t, "alice", "bob")
	r := newRouter(e)

	w := do(r, http.MethodPost, "/posts", `{"author_id":"alice","content":"root"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var root models.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &root))

	w = do(r, http.MethodPost, "/posts", `{"author_id":"bob","parent_id":`+strconv.FormatInt(root.ID, 10)+`,"content":"reply"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(r, http.MethodPost, "/posts/"+strconv.FormatInt(root.ID, 10)+"/votes", `{"user_id":"bob","vote":-1}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(r, http.MethodGet, "/posts/"+strconv.FormatInt(root.ID, 10)+"/state?viewer=bob", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var state models.CommentTreeState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	require.Equal(t, models.Down, state.Posts[root.ID].VoteState.Vote)
	require.Len(t, state.Posts, 2)

	w = do(r, http.MethodGet, "/posts/"+strconv.FormatInt(root.ID, 10)+"/tree", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"replies"`)

	w = do(r, http.MethodGet, "/posts/"+strconv.FormatInt(root.ID, 10)+"/collapsed?viewer=bob&focus="+strconv.FormatInt(root.ID, 10), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Contains(t, w.Body.String(), `"currently_focussed_post_id"`)
}

func TestHandlerErrors(t *testing.T) {
	e := newEnv(t, "alice")
	r := newRouter(e)
	root := e.reply(t, "alice", nil)
	id := strconv.FormatInt(root.ID, 10)

	cases := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodGet, "/posts/abc/tree", "", http.StatusBadRequest},
		{http.MethodGet, "/posts/999/tree", "", http.StatusNotFound},
		{http.MethodGet, "/posts/" + id + "/state?viewer=ghost", "", http.StatusNotFound},
		{http.MethodGet, "/posts/" + id + "/collapsed?focus=x", "", http.StatusBadRequest},
		{http.MethodPost, "/posts", `{"author_id":"alice"}`, http.StatusBadRequest},
		{http.MethodPost, "/posts", `{"author_id":"alice","content":"  "}`, http.StatusBadRequest},
		{http.MethodPost, "/posts/" + id + "/votes", `{"user_id":"alice"}`, http.StatusBadRequest},
		{http.MethodPost, "/posts/" + id + "/votes", `{"user_id":"alice","vote":5}`, http.StatusBadRequest},
		{http.MethodDelete, "/posts/999", "", http.StatusNotFound},
		{http.MethodDelete, "/posts/" + id, "", http.StatusNoContent},
		{http.MethodPost, "/posts/" + id + "/votes", `{"user_id":"alice","vote":1}`, http.StatusConflict},
		{http.MethodPost, "/posts/" + id + "/restore", "", http.StatusNoContent},
		{http.MethodPost, "/posts/" + id + "/votes", `{"user_id":"alice","vote":0}`, http.StatusCreated},
	}
	for _, tc := range cases {
		w := do(r, tc.method, tc.path, tc.body)
		if w.Code != tc.want {
			t.Fatalf("%s %s: ожидался статус %d, получен %d (%s)", tc.method, tc.path, tc.want, w.Code, w.Body.String())
		}
	}
}
