package model

import "time"

// DiaryEntry は日記の1エントリを表す。
type DiaryEntry struct {
	ID        string
	AccountID string
	Content   string
	EntryDate time.Time
	CreatedAt time.Time
}

// Note はTODOリストの1項目を表す。
type Note struct {
	ID        string
	AccountID string
	Title     string
	Completed bool
	CreatedAt time.Time
}

// Image はフォトギャラリーにアップロードされた画像を表す。
// FileNameはオブジェクトストレージ上のキー。
type Image struct {
	ID        string
	AccountID string
	FileName  string
	Caption   string
	CreatedAt time.Time
}
