package domain

import (
	"path"
	"slices"
	"strings"
)

// Folder is a directory of local tracks.
type Folder struct {
	Name       string
	Path       string
	Subfolders []*Folder
	Tracks     []Track
}

// BuildFolderTree groups local tracks by the directories of their local paths.
// Tracks without a local path are ignored.
func BuildFolderTree(tracks []Track) *Folder {
	root := &Folder{Name: "/", Path: "/"}
	for _, track := range tracks {
		if track.LocalPath == "" {
			continue
		}
		dir := path.Dir(path.Clean("/" + track.LocalPath))
		folder := root
		for _, name := range strings.Split(strings.Trim(dir, "/"), "/") {
			if name == "" {
				continue
			}
			folder = folder.child(name)
		}
		folder.Tracks = append(folder.Tracks, track)
	}
	root.sortSubfolders()
	return root
}

func (f *Folder) child(name string) *Folder {
	for _, sub := range f.Subfolders {
		if sub.Name == name {
			return sub
		}
	}
	sub := &Folder{Name: name, Path: path.Join(f.Path, name)}
	f.Subfolders = append(f.Subfolders, sub)
	return sub
}

func (f *Folder) sortSubfolders() {
	slices.SortFunc(f.Subfolders, func(a, b *Folder) int {
		return strings.Compare(a.Name, b.Name)
	})
	for _, sub := range f.Subfolders {
		sub.sortSubfolders()
	}
}

// Find returns the folder at the given path within the tree, or nil.
func (f *Folder) Find(p string) *Folder {
	p = path.Clean("/" + p)
	if p == f.Path {
		return f
	}
	for _, sub := range f.Subfolders {
		if p == sub.Path || strings.HasPrefix(p, sub.Path+"/") {
			return sub.Find(p)
		}
	}
	return nil
}

// Flatten returns every track of the subtree, depth first, each folder's own
// tracks before those of its subfolders.
func (f *Folder) Flatten() []Track {
	tracks := slices.Clone(f.Tracks)
	for _, sub := range f.Subfolders {
		tracks = append(tracks, sub.Flatten()...)
	}
	return tracks
}

// FolderStack is the navigation path through a folder tree. Push and Pop return
// new stacks and leave the receiver unchanged.
type FolderStack struct {
	folders []*Folder
}

// NewFolderStack returns a stack holding only root.
func NewFolderStack(root *Folder) FolderStack {
	return FolderStack{folders: []*Folder{root}}
}

// Push returns a stack with folder on top.
func (s FolderStack) Push(folder *Folder) FolderStack {
	folders := make([]*Folder, len(s.folders), len(s.folders)+1)
	copy(folders, s.folders)
	return FolderStack{folders: append(folders, folder)}
}

// Pop returns the stack without its top folder. The root is never popped.
func (s FolderStack) Pop() FolderStack {
	if len(s.folders) <= 1 {
		return s
	}
	return FolderStack{folders: slices.Clone(s.folders[:len(s.folders)-1])}
}

// Peek returns the top folder, or nil for an empty stack.
func (s FolderStack) Peek() *Folder {
	if len(s.folders) == 0 {
		return nil
	}
	return s.folders[len(s.folders)-1]
}

// Depth returns the number of folders on the stack.
func (s FolderStack) Depth() int {
	return len(s.folders)
}

// Path returns the path of the top folder.
func (s FolderStack) Path() string {
	if top := s.Peek(); top != nil {
		return top.Path
	}
	return ""
}
