package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nimeshgurung/okrbuilder/internal/commit"
	"github.com/nimeshgurung/okrbuilder/internal/okr"
)

func (s *Server) handleListObjectives(c *gin.Context) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: s.store.Get().Objectives})
}

func (s *Server) handleCreateObjective(c *gin.Context) {
	var req ObjectiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, fmt.Sprintf("invalid request: %v", err))
		return
	}

	var created okr.Objective
	s.store.Replace(func(prev okr.SessionState) okr.SessionState {
		draft := req.toDraft()
		if draft.Quarter == "" {
			draft.Quarter = prev.CurrentQuarter
		}
		prev.Objectives, created = okr.AddObjective(prev.Objectives, draft)
		return prev
	})

	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: created})
}

func (s *Server) handleUpdateObjective(c *gin.Context) {
	id := c.Param("id")
	var req ObjectivePatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, fmt.Sprintf("invalid request: %v", err))
		return
	}

	var updated okr.Objective
	_, err := s.store.Update(func(prev okr.SessionState) (okr.SessionState, error) {
		var found bool
		prev.Objectives, updated, found = okr.UpdateObjective(prev.Objectives, req.toPatch(id))
		if !found {
			return prev, errNotFound(id)
		}
		return prev, nil
	})
	if err != nil {
		notFound(c, err)
		return
	}

	c.JSON(http.StatusOK, APIResponse{Success: true, Data: updated})
}

func (s *Server) handleDeleteObjective(c *gin.Context) {
	id := c.Param("id")

	_, err := s.store.Update(func(prev okr.SessionState) (okr.SessionState, error) {
		next, found := okr.DeleteObjective(prev.Objectives, id)
		if !found {
			return prev, errNotFound(id)
		}
		prev.Objectives = next
		return prev, nil
	})
	if err != nil {
		notFound(c, err)
		return
	}

	c.JSON(http.StatusOK, APIResponse{Success: true, Data: gin.H{"deleted": id}})
}

func (s *Server) handleCreateKeyResult(c *gin.Context) {
	id := c.Param("id")
	var req KeyResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, fmt.Sprintf("invalid request: %v", err))
		return
	}

	var created okr.KeyResult
	_, err := s.store.Update(func(prev okr.SessionState) (okr.SessionState, error) {
		idx := indexOfObjective(prev.Objectives, id)
		if idx < 0 {
			return prev, errNotFound(id)
		}
		prev.Objectives[idx], created = okr.AddKeyResult(prev.Objectives[idx], okr.KeyResult{
			Summary:  req.Summary,
			Progress: req.Progress,
			Target:   req.Target,
			Units:    req.Units,
		})
		return prev, nil
	})
	if err != nil {
		notFound(c, err)
		return
	}

	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: created})
}

func (s *Server) handleUpdateKeyResult(c *gin.Context) {
	id := c.Param("id")
	krID := c.Param("krID")
	var req KeyResultPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, fmt.Sprintf("invalid request: %v", err))
		return
	}

	var updated okr.Objective
	_, err := s.store.Update(func(prev okr.SessionState) (okr.SessionState, error) {
		idx := indexOfObjective(prev.Objectives, id)
		if idx < 0 {
			return prev, errNotFound(id)
		}
		next, found := okr.UpdateKeyResult(prev.Objectives[idx], req.toPatch(krID))
		if !found {
			return prev, fmt.Errorf("key result %s was not found on objective %s", krID, id)
		}
		prev.Objectives[idx] = next
		updated = next
		return prev, nil
	})
	if err != nil {
		notFound(c, err)
		return
	}

	c.JSON(http.StatusOK, APIResponse{Success: true, Data: updated})
}

func (s *Server) handleDeleteKeyResult(c *gin.Context) {
	id := c.Param("id")
	krID := c.Param("krID")

	var updated okr.Objective
	_, err := s.store.Update(func(prev okr.SessionState) (okr.SessionState, error) {
		idx := indexOfObjective(prev.Objectives, id)
		if idx < 0 {
			return prev, errNotFound(id)
		}
		next, found := okr.DeleteKeyResult(prev.Objectives[idx], krID)
		if !found {
			return prev, fmt.Errorf("key result %s was not found on objective %s", krID, id)
		}
		prev.Objectives[idx] = next
		updated = next
		return prev, nil
	})
	if err != nil {
		notFound(c, err)
		return
	}

	c.JSON(http.StatusOK, APIResponse{Success: true, Data: updated})
}

func (s *Server) handleRequestCommit(c *gin.Context) {
	id := c.Param("id")
	if err := s.commits.RequestCommit(id); err != nil {
		notFound(c, err)
		return
	}
	s.hub.Broadcast(EventCommitPrompt, gin.H{"objectiveId": id})
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: gin.H{"pending": id}})
}

func (s *Server) handleConfirmCommit(c *gin.Context) {
	id := c.Param("id")
	committed, err := s.commits.Confirm(id)
	if err != nil {
		notFound(c, err)
		return
	}
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: committed})
}

func (s *Server) handleCancelCommit(c *gin.Context) {
	id := c.Param("id")
	s.commits.Cancel(id)
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: gin.H{"cancelled": id}})
}

func (s *Server) handleChatMessage(c *gin.Context) {
	if s.chat == nil {
		c.JSON(http.StatusServiceUnavailable, APIResponse{
			Success: false,
			Error:   "chat is not configured",
		})
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, fmt.Sprintf("invalid request: %v", err))
		return
	}

	reply, err := s.chat.HandleMessage(c.Request.Context(), req.SessionID, req.Content)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordChatTurn("error")
		}
		c.JSON(http.StatusBadGateway, APIResponse{Success: false, Error: err.Error()})
		return
	}
	if s.metrics != nil {
		s.metrics.RecordChatTurn("ok")
	}

	c.JSON(http.StatusOK, APIResponse{Success: true, Data: reply})
}

func (s *Server) handleSuggestions(c *gin.Context) {
	if s.chat == nil {
		c.JSON(http.StatusServiceUnavailable, APIResponse{
			Success: false,
			Error:   "chat is not configured",
		})
		return
	}
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    SuggestionsResponse{Instructions: s.chat.Suggestions()},
	})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: msg})
}

func notFound(c *gin.Context, err error) {
	status := http.StatusNotFound
	if !errors.Is(err, commit.ErrNotFound) && !strings.Contains(err.Error(), "not found") {
		status = http.StatusConflict
	}
	c.JSON(status, APIResponse{Success: false, Error: err.Error()})
}

func errNotFound(id string) error {
	return fmt.Errorf("objective %s was not found", id)
}

func indexOfObjective(objectives []okr.Objective, id string) int {
	for i := range objectives {
		if objectives[i].ID == id {
			return i
		}
	}
	return -1
}
