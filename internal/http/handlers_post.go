package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"blog/internal/auth"
	"blog/internal/models"
	"blog/internal/store"
)

func postID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func postURL(id int64) string { return fmt.Sprintf("/posts/%d/", id) }

func (s *Server) handlePostDetail(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.reqCtx(r)
	defer cancel()

	p, err := s.Store.GetPost(ctx, postID(r))
	if errors.Is(err, store.ErrNotFound) {
		s.notFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	comments, err := s.Store.ListComments(ctx, p.ID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	title := p.Text
	if len([]rune(title)) > 30 {
		title = string([]rune(title)[:30])
	}
	data := s.newPage(ctx, title)
	data.Post = p
	data.Comments = comments
	s.renderPage(w, r, http.StatusOK, "post_detail", data)
}

// showPostForm renders the create/edit form with status 200, including
// when the submission was rejected.
func (s *Server) showPostForm(ctx context.Context, w http.ResponseWriter, r *http.Request, f postForm, isEdit bool) {
	groups, err := s.Store.ListGroups(ctx)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	title := "New post"
	if isEdit {
		title = "Edit post"
	}
	data := s.newPage(ctx, title)
	data.Form = f
	data.Groups = groups
	data.IsEdit = isEdit
	s.renderPage(w, r, http.StatusOK, "create_post", data)
}

func (s *Server) handlePostCreate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.reqCtx(r)
	defer cancel()

	if r.Method == http.MethodGet {
		s.showPostForm(ctx, w, r, postForm{}, false)
		return
	}

	f := s.readPostForm(w, r)
	if f.Valid() {
		if err := s.validate(ctx, &f); err != nil {
			s.serverError(w, r, err)
			return
		}
	}
	if !f.Valid() {
		s.showPostForm(ctx, w, r, f, false)
		return
	}

	uid, _ := auth.UserIDFrom(ctx)
	me, err := s.Store.GetUser(ctx, uid)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	image, err := s.saveImage(f)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	p, err := s.Store.CreatePost(ctx, models.Post{Text: f.Text, AuthorID: uid, GroupID: f.groupID(), Image: image})
	if err != nil {
		s.removeImage(image)
		s.serverError(w, r, err)
		return
	}
	s.log.WithFields(logrus.Fields{"post": p.ID, "author": uid}).Info("post created")
	http.Redirect(w, r, "/profile/"+me.Username+"/", http.StatusSeeOther)
}

// handlePostEdit lets the author change text, group and image. Anyone else
// is sent back to the post.
func (s *Server) handlePostEdit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.reqCtx(r)
	defer cancel()

	p, err := s.Store.GetPost(ctx, postID(r))
	if errors.Is(err, store.ErrNotFound) {
		s.notFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if uid, _ := auth.UserIDFrom(ctx); uid != p.AuthorID {
		http.Redirect(w, r, postURL(p.ID), http.StatusFound)
		return
	}

	if r.Method == http.MethodGet {
		f := postForm{Text: p.Text}
		if p.GroupID != nil {
			f.GroupID = *p.GroupID
		}
		s.showPostForm(ctx, w, r, f, true)
		return
	}

	f := s.readPostForm(w, r)
	if f.Valid() {
		if err := s.validate(ctx, &f); err != nil {
			s.serverError(w, r, err)
			return
		}
	}
	if !f.Valid() {
		s.showPostForm(ctx, w, r, f, true)
		return
	}

	oldImage := p.Image
	if f.image != nil {
		if p.Image, err = s.saveImage(f); err != nil {
			s.serverError(w, r, err)
			return
		}
	}
	p.Text = f.Text
	p.GroupID = f.groupID()
	if _, err := s.Store.UpdatePost(ctx, p); err != nil {
		if p.Image != oldImage {
			s.removeImage(p.Image)
		}
		s.serverError(w, r, err)
		return
	}
	if p.Image != oldImage {
		s.removeImage(oldImage)
	}
	http.Redirect(w, r, postURL(p.ID), http.StatusSeeOther)
}

func (s *Server) handlePostDelete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.reqCtx(r)
	defer cancel()

	p, err := s.Store.GetPost(ctx, postID(r))
	if errors.Is(err, store.ErrNotFound) {
		s.notFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if uid, _ := auth.UserIDFrom(ctx); uid != p.AuthorID {
		http.Redirect(w, r, postURL(p.ID), http.StatusFound)
		return
	}
	if err := s.Store.DeletePost(ctx, p.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		s.serverError(w, r, err)
		return
	}
	s.removeImage(p.Image)
	s.log.WithFields(logrus.Fields{"post": p.ID, "author": p.AuthorID}).Info("post deleted")
	http.Redirect(w, r, "/profile/"+p.Author+"/", http.StatusSeeOther)
}

// handleCommentCreate adds a comment and returns to the post. An empty
// comment is dropped silently.
func (s *Server) handleCommentCreate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.reqCtx(r)
	defer cancel()

	p, err := s.Store.GetPost(ctx, postID(r))
	if errors.Is(err, store.ErrNotFound) {
		s.notFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	text := strings.TrimSpace(r.PostFormValue("text"))
	if text != "" {
		uid, _ := auth.UserIDFrom(ctx)
		_, err := s.Store.CreateComment(ctx, models.Comment{PostID: p.ID, AuthorID: uid, Text: text})
		if errors.Is(err, store.ErrNotFound) {
			// post deleted meanwhile
			s.notFound(w, r)
			return
		}
		if err != nil {
			s.serverError(w, r, err)
			return
		}
	}
	http.Redirect(w, r, postURL(p.ID), http.StatusSeeOther)
}
