package http

import (
	"errors"
	"net/http"
	"strconv"

	"task-scheduler/internal/dto"
	"task-scheduler/internal/service"
	"task-scheduler/pkg/logger"
	"task-scheduler/pkg/utils"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupTasks(base *echo.Group) {
	v1 := base.Group("/v1", h.RequireAuth, h.RateLimit)
	{
		v1.POST("/tasks", h.CreateTask)
		v1.GET("/tasks", h.ListTasks)
		v1.POST("/tasks/run", h.RunDueTasks)
		v1.GET("/tasks/:id", h.GetTask)
		v1.PUT("/tasks/:id", h.UpdateTask)
		v1.DELETE("/tasks/:id", h.DeleteTask)
		v1.GET("/tasks/:id/history", h.GetTaskHistory)
		v1.GET("/history", h.GetAllHistory)
	}
}

func (h *HttpAPIHandler) CreateTask(c echo.Context) error {
	var req dto.CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}
	if err := h.validator.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	task, err := h.service.TaskService.Create(c.Request().Context(), currentUser(c).ID, req)
	if err != nil {
		h.log.ErrorContext(c.Request().Context(), "Failed to create task", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, "failed to create task", nil))
	}

	return c.JSON(http.StatusCreated, dto.NewBaseResponse(http.StatusCreated, "Task created successfully", task))
}

func (h *HttpAPIHandler) GetTask(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid task id"))
	}

	task, err := h.service.TaskService.GetByID(c.Request().Context(), currentUser(c).ID, id)
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			return c.JSON(http.StatusNotFound, dto.NewNotFoundResponse("task not found"))
		}
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, "failed to get task", nil))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Task retrieved successfully", task))
}

func (h *HttpAPIHandler) ListTasks(c echo.Context) error {
	page, limit := pagination(c)

	resp, err := h.service.TaskService.List(c.Request().Context(), currentUser(c).ID, page, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, "failed to list tasks", nil))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Tasks retrieved successfully", resp))
}

func (h *HttpAPIHandler) UpdateTask(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid task id"))
	}

	var req dto.UpdateTaskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}
	if err := h.validator.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	task, err := h.service.TaskService.Update(c.Request().Context(), currentUser(c).ID, id, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTaskNotFound):
			return c.JSON(http.StatusNotFound, dto.NewNotFoundResponse("task not found"))
		case errors.Is(err, service.ErrTaskNotEditable):
			return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
		default:
			return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, "failed to update task", nil))
		}
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Task updated successfully", task))
}

func (h *HttpAPIHandler) DeleteTask(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid task id"))
	}

	if err := h.service.TaskService.Delete(c.Request().Context(), currentUser(c).ID, id); err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			return c.JSON(http.StatusNotFound, dto.NewNotFoundResponse("task not found"))
		}
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, "failed to delete task", nil))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Task deleted successfully", nil))
}

func (h *HttpAPIHandler) GetTaskHistory(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid task id"))
	}
	page, limit := pagination(c)

	resp, err := h.service.TaskService.History(c.Request().Context(), currentUser(c).ID, utils.ToPointer(id), page, limit)
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			return c.JSON(http.StatusNotFound, dto.NewNotFoundResponse("task not found"))
		}
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, "failed to get task history", nil))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Task history retrieved successfully", resp))
}

func (h *HttpAPIHandler) GetAllHistory(c echo.Context) error {
	page, limit := pagination(c)

	resp, err := h.service.TaskService.History(c.Request().Context(), currentUser(c).ID, nil, page, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, "failed to get history", nil))
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("History retrieved successfully", resp))
}

// RunDueTasks triggers one poll cycle on demand, useful for operations and tests.
func (h *HttpAPIHandler) RunDueTasks(c echo.Context) error {
	if err := h.service.SchedulerService.PollOnce(c.Request().Context()); err != nil {
		return c.JSON(http.StatusInternalServerError, dto.NewBaseResponse(http.StatusInternalServerError, err.Error(), nil))
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("Poll cycle completed", nil))
}

func parseID(c echo.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func pagination(c echo.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return page, limit
}
