package model

// SectionKey - закрытое перечисление секций плана. Динамический доступ к полям
// по строковому имени заменен явной таблицей диспетчеризации: неизвестная
// секция - это ошибка конструирования, а не runtime nil.
type SectionKey string

const (
	SectionIdea              SectionKey = "idea"
	SectionTargetAudience    SectionKey = "targetAudience"
	SectionHook              SectionKey = "hook"
	SectionHooks             SectionKey = "hooks"
	SectionOutline           SectionKey = "outline"
	SectionThumbnailConcepts SectionKey = "thumbnailConcepts"
	SectionTitleOptions      SectionKey = "titleOptions"
	SectionCTRCombos         SectionKey = "ctrCombos"
)

// SectionShape описывает ожидаемую форму вывода модели для секции
type SectionShape int

const (
	// ShapePlainText - секция хранит обычный текст (trim и всё)
	ShapePlainText SectionShape = iota
	// ShapeStringArray - JSON-массив строк
	ShapeStringArray
	// ShapeObjectArray - JSON-массив структурированных объектов
	ShapeObjectArray
)

// SectionInfo - метаданные секции для промптов и парсинга
type SectionInfo struct {
	Key   SectionKey
	Label string
	Shape SectionShape
}

// sections - таблица диспетчеризации по всем известным секциям
var sections = map[SectionKey]SectionInfo{
	SectionIdea:              {SectionIdea, "Core Idea", ShapePlainText},
	SectionTargetAudience:    {SectionTargetAudience, "Target Audience", ShapePlainText},
	SectionHook:              {SectionHook, "Hook & Intro", ShapePlainText},
	SectionHooks:             {SectionHooks, "Hook Variants", ShapeObjectArray},
	SectionOutline:           {SectionOutline, "Content Outline", ShapeObjectArray},
	SectionThumbnailConcepts: {SectionThumbnailConcepts, "Thumbnail Ideas", ShapeStringArray},
	SectionTitleOptions:      {SectionTitleOptions, "Title Options", ShapeStringArray},
	SectionCTRCombos:         {SectionCTRCombos, "Title/Thumbnail Combos", ShapeObjectArray},
}

// ParseSectionKey валидирует строковое имя секции.
// Возвращает ErrInvalidSection для неизвестных имен.
func ParseSectionKey(s string) (SectionKey, error) {
	key := SectionKey(s)
	if _, ok := sections[key]; !ok {
		return "", ErrInvalidSection
	}
	return key, nil
}

// Info возвращает метаданные секции. Паникует для невалидного ключа,
// т.к. ключ обязан проходить через ParseSectionKey.
func (k SectionKey) Info() SectionInfo {
	info, ok := sections[k]
	if !ok {
		panic("model: unknown section key " + string(k))
	}
	return info
}

// AllSectionKeys возвращает список всех известных секций в фиксированном порядке
func AllSectionKeys() []SectionKey {
	return []SectionKey{
		SectionIdea,
		SectionTargetAudience,
		SectionHook,
		SectionHooks,
		SectionOutline,
		SectionThumbnailConcepts,
		SectionTitleOptions,
		SectionCTRCombos,
	}
}
