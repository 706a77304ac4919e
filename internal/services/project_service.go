// internal/services/project_service.go
package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	apperrors "github.com/Corphon/FilmForgeAI/internal/errors"
	"github.com/Corphon/FilmForgeAI/internal/models"
	"github.com/Corphon/FilmForgeAI/internal/storage"
	"github.com/Corphon/FilmForgeAI/internal/utils"
)

// ProjectService 管理项目状态文档的持久化
// 每个项目一个目录，目录名与状态文件名都使用规范化名称
type ProjectService struct {
	BaseDir     string
	FileStorage *storage.FileStorage
}

// NewProjectService 创建项目服务
func NewProjectService(baseDir string) (*ProjectService, error) {
	if baseDir == "" {
		baseDir = "filmforge_projects"
	}

	fileStorage, err := storage.NewFileStorage(baseDir)
	if err != nil {
		return nil, fmt.Errorf("初始化文件存储失败: %w", err)
	}

	return &ProjectService{
		BaseDir:     baseDir,
		FileStorage: fileStorage,
	}, nil
}

// stateFilename 返回规范化名称对应的状态文件名
func stateFilename(cleanedName string) string {
	return cleanedName + "_state.json"
}

// validateName 校验项目名并返回规范化名称
func validateName(name string) (string, error) {
	cleaned := models.NormalizeName(name)
	if cleaned == "" {
		return "", apperrors.NewInvalidNameError("project name cannot be empty", nil)
	}
	return cleaned, nil
}

// ListProjects 返回所有已存在项目的显示名称（按字典序）
// 只有包含正确命名状态文件的目录才算项目，孤儿目录不可见
func (s *ProjectService) ListProjects() ([]string, error) {
	dirs, err := s.FileStorage.ListDirs()
	if err != nil {
		return nil, apperrors.NewIOError("failed to list projects directory", err)
	}

	names := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		if !s.FileStorage.FileExists(dir, stateFilename(dir)) {
			continue
		}
		names = append(names, s.displayName(dir))
	}
	sort.Strings(names)
	return names, nil
}

// displayName 从状态文件读取项目显示名，读不到时回退为目录名
func (s *ProjectService) displayName(dir string) string {
	data, err := s.FileStorage.LoadFile(dir, stateFilename(dir))
	if err != nil {
		return dir
	}

	var header struct {
		ProjectName string `json:"project_name"`
	}
	if json.Unmarshal(data, &header) != nil || header.ProjectName == "" {
		return dir
	}
	return header.ProjectName
}

// CreateProject 创建一个新项目并立即持久化初始状态
func (s *ProjectService) CreateProject(name string) (*models.ProjectState, error) {
	cleaned, err := validateName(name)
	if err != nil {
		return nil, err
	}

	// 冲突只看状态文件是否已解析到，残留的空目录不算占用
	if exists, err := s.ProjectExists(name); err != nil {
		return nil, err
	} else if exists {
		return nil, apperrors.NewAlreadyExistsError(
			fmt.Sprintf("project '%s' already exists", strings.TrimSpace(name)), nil)
	}

	state := models.DefaultProjectState()
	state.SetName(name)
	state.AppendLog(fmt.Sprintf("Created new project '%s'.", state.ProjectName))

	if err := s.SaveProject(state); err != nil {
		return nil, err
	}

	utils.GetLogger().Infof("Created project '%s' (%s)", state.ProjectName, cleaned)
	return state, nil
}

// LoadProject 加载项目状态并向当前模式版本补齐缺失字段
func (s *ProjectService) LoadProject(name string) (*models.ProjectState, error) {
	cleaned, err := validateName(name)
	if err != nil {
		return nil, err
	}

	if !s.FileStorage.DirExists(cleaned) {
		return nil, apperrors.NewNotFoundError(
			fmt.Sprintf("project '%s' not found", strings.TrimSpace(name)), nil)
	}

	data, err := s.FileStorage.LoadFile(cleaned, stateFilename(cleaned))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.NewNotFoundError(
				fmt.Sprintf("project '%s' has no state file", strings.TrimSpace(name)), err)
		}
		return nil, apperrors.WrapError(err, "failed to read project state", apperrors.ErrorTypeIO)
	}

	var loaded map[string]interface{}
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, apperrors.NewCorruptError(
			fmt.Sprintf("project state for '%s' is not valid JSON", strings.TrimSpace(name)), err)
	}

	state, err := s.mergeWithDefaults(loaded)
	if err != nil {
		return nil, apperrors.NewCorruptError(
			fmt.Sprintf("project state for '%s' does not match the expected schema", strings.TrimSpace(name)), err)
	}

	// 名称字段始终以请求的名称为准
	state.SetName(name)
	state.TrimLog()
	state.AppendLog(fmt.Sprintf("Project '%s' loaded.", state.ProjectName))

	return state, nil
}

// mergeWithDefaults 将读入的文档与默认模式递归合并
// 缺失键补默认值，已有值保持不变，容器类型冲突时整体回退默认并告警
func (s *ProjectService) mergeWithDefaults(loaded map[string]interface{}) (*models.ProjectState, error) {
	defaultsJSON, err := json.Marshal(models.DefaultProjectState())
	if err != nil {
		return nil, err
	}
	var defaults map[string]interface{}
	if err := json.Unmarshal(defaultsJSON, &defaults); err != nil {
		return nil, err
	}

	merged := mergeDefaults(defaults, loaded, "")

	mergedJSON, err := json.Marshal(merged)
	if err != nil {
		return nil, err
	}
	var state models.ProjectState
	if err := json.Unmarshal(mergedJSON, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// mergeDefaults 对 map 结构做递归默认值合并，返回合并结果
func mergeDefaults(defaults, loaded map[string]interface{}, path string) map[string]interface{} {
	result := make(map[string]interface{}, len(loaded)+len(defaults))
	for key, value := range loaded {
		result[key] = value
	}

	for key, defaultValue := range defaults {
		keyPath := key
		if path != "" {
			keyPath = path + "." + key
		}

		loadedValue, exists := result[key]
		if !exists || loadedValue == nil {
			result[key] = defaultValue
			continue
		}

		if defaultMap, ok := defaultValue.(map[string]interface{}); ok {
			loadedMap, ok := loadedValue.(map[string]interface{})
			if !ok {
				utils.GetLogger().Warnf(
					"State key '%s' has unexpected type, resetting to default", keyPath)
				result[key] = defaultValue
				continue
			}
			result[key] = mergeDefaults(defaultMap, loadedMap, keyPath)
			continue
		}

		if _, ok := defaultValue.([]interface{}); ok {
			if _, ok := loadedValue.([]interface{}); !ok {
				utils.GetLogger().Warnf(
					"State key '%s' has unexpected type, resetting to default", keyPath)
				result[key] = defaultValue
			}
		}
	}

	return result
}

// SaveProject 原子化保存项目状态
// 保存前写入时间戳与保存日志，保证落盘文档日志不超上限
func (s *ProjectService) SaveProject(state *models.ProjectState) error {
	if state == nil {
		return apperrors.NewInvalidStateError("project state is nil", nil)
	}
	if strings.TrimSpace(state.ProjectName) == "" {
		return apperrors.NewInvalidStateError("project state has no project name", nil)
	}

	// 重新计算名称字段，防止两者脱节
	state.SetName(state.ProjectName)

	now := time.Now()
	state.LastSaved = &now
	state.AppendLog("State saved at " + now.Format(time.RFC3339))

	if err := s.FileStorage.SaveJSONFile(state.CleanedName, stateFilename(state.CleanedName), state); err != nil {
		return apperrors.NewIOError(
			fmt.Sprintf("failed to save project '%s'", state.ProjectName), err)
	}

	return nil
}

// DeleteProject 删除项目目录
// 项目不存在时返回 (false, nil)，不视为错误
func (s *ProjectService) DeleteProject(name string) (bool, error) {
	cleaned, err := validateName(name)
	if err != nil {
		return false, err
	}

	if err := s.FileStorage.DeleteDir(cleaned); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, apperrors.NewIOError(
			fmt.Sprintf("failed to delete project '%s'", strings.TrimSpace(name)), err)
	}

	utils.GetLogger().Infof("Deleted project '%s'", strings.TrimSpace(name))
	return true, nil
}

// ProjectExists 检查项目是否存在（目录与状态文件都在才算存在）
func (s *ProjectService) ProjectExists(name string) (bool, error) {
	cleaned, err := validateName(name)
	if err != nil {
		return false, err
	}
	return s.FileStorage.FileExists(cleaned, stateFilename(cleaned)), nil
}
