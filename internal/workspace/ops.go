package workspace

// UpsertNote inserts the note at the front or replaces an existing entry with
// the same id in place, so create-then-edit never duplicates the entity.
func UpsertNote(notes []Note, note Note) []Note {
	for i := range notes {
		if notes[i].ID == note.ID {
			notes[i] = note
			return notes
		}
	}
	return append([]Note{note}, notes...)
}

// RemoveNote drops the note with the given id, if present.
func RemoveNote(notes []Note, id string) []Note {
	result := notes[:0]
	for _, note := range notes {
		if note.ID != id {
			result = append(result, note)
		}
	}
	return result
}

// NotesInFolder filters notes belonging to the folder.
func NotesInFolder(notes []Note, folderID string) []Note {
	var result []Note
	for _, note := range notes {
		if note.FolderID == folderID {
			result = append(result, note)
		}
	}
	return result
}

// PrependTodo adds a task to the front of the list.
func PrependTodo(todos []Todo, todo Todo) []Todo {
	return append([]Todo{todo}, todos...)
}

// ToggleTodo flips the completed flag of the task with the given id.
func ToggleTodo(todos []Todo, id string) []Todo {
	for i := range todos {
		if todos[i].ID == id {
			todos[i].Completed = !todos[i].Completed
		}
	}
	return todos
}

// RemoveTodo drops the task with the given id, if present.
func RemoveTodo(todos []Todo, id string) []Todo {
	result := todos[:0]
	for _, todo := range todos {
		if todo.ID != id {
			result = append(result, todo)
		}
	}
	return result
}

// FolderByID resolves a folder, falling back to the first folder and finally
// to a synthetic default so callers always get a usable entry.
func FolderByID(folders []Folder, id string) Folder {
	for _, folder := range folders {
		if folder.ID == id {
			return folder
		}
	}
	if len(folders) > 0 {
		return folders[0]
	}
	return Folder{ID: DefaultFolderID, Name: "General", Color: "#6b7280"}
}
