package service

import (
	"context"

	"farmanet/internal/errors"
	"farmanet/model"
	"farmanet/protocol"
)

func (s *Service) addUser(ctx context.Context, data protocol.Data) protocol.Envelope {
	id, err := requireString(data, protocol.FieldUserID)
	if err != nil {
		return fail("Error al agregar usuario", err)
	}
	password, err := requireString(data, protocol.FieldPassword)
	if err != nil {
		return fail("Error al agregar usuario", err)
	}
	name, err := requireString(data, protocol.FieldName)
	if err != nil {
		return fail("Error al agregar usuario", err)
	}
	role := model.Role(data.String(protocol.FieldRole))
	if !role.Valid() {
		return protocol.ErrorResponse("Rol inválido: " + data.String(protocol.FieldRole))
	}

	u := model.User{ID: id, Name: name, Role: role}
	if role == model.RoleDoctor {
		u.Specialty, err = requireString(data, protocol.FieldSpecialty)
		if err != nil {
			return fail("Error al agregar usuario", err)
		}
	}

	if err := s.store.AddUser(ctx, u, password); err != nil {
		if errors.Is(err, errors.ErrDuplicate) {
			return protocol.ErrorResponse("Ya existe un usuario con el ID: " + id)
		}
		return fail("Error al agregar usuario", err)
	}
	return protocol.SuccessResponse("Usuario agregado exitosamente", userData(u))
}

func (s *Service) removeUser(ctx context.Context, data protocol.Data) protocol.Envelope {
	id, err := requireString(data, protocol.FieldUserID)
	if err != nil {
		return fail("Error al eliminar usuario", err)
	}
	if err := s.store.DeleteUser(ctx, id); err != nil {
		if errors.IsNotFound(err) {
			return protocol.ErrorResponse("Usuario no encontrado: " + id)
		}
		return fail("Error al eliminar usuario", err)
	}
	return protocol.SuccessResponse("Usuario eliminado exitosamente", nil)
}

func (s *Service) listUsers(ctx context.Context) protocol.Envelope {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return fail("Error al listar usuarios", err)
	}
	return protocol.SuccessResponse("Usuarios obtenidos", protocol.Data{"usuarios": userListData(users)})
}

func (s *Service) listDoctors(ctx context.Context) protocol.Envelope {
	doctors, err := s.store.ListByRole(ctx, model.RoleDoctor)
	if err != nil {
		return fail("Error al listar médicos", err)
	}
	return protocol.SuccessResponse("Médicos obtenidos", protocol.Data{"medicos": userListData(doctors)})
}

func (s *Service) listPharmacists(ctx context.Context) protocol.Envelope {
	pharmacists, err := s.store.ListByRole(ctx, model.RolePharmacist)
	if err != nil {
		return fail("Error al listar farmaceutas", err)
	}
	return protocol.SuccessResponse("Farmaceutas obtenidos", protocol.Data{"farmaceutas": userListData(pharmacists)})
}

func (s *Service) listActiveUsers(ctx context.Context) protocol.Envelope {
	active, err := s.store.ListActiveUsers(ctx)
	if err != nil {
		return fail("Error al listar usuarios activos", err)
	}
	list := make([]protocol.Data, 0, len(active))
	for _, au := range active {
		list = append(list, activeUserData(au))
	}
	return protocol.SuccessResponse("Usuarios activos obtenidos", protocol.Data{"usuarios": list})
}

func userListData(users []model.User) []protocol.Data {
	list := make([]protocol.Data, 0, len(users))
	for _, u := range users {
		list = append(list, userData(u))
	}
	return list
}
