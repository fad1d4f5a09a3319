package errors

// 에러 코드 상수 정의
// 형식: CATEGORY_SPECIFIC_DETAIL
// 클라이언트는 message 대신 이 코드를 기준으로 분기한다

const (
	// ==================== 인증 (AUTH_) ====================
	AuthUnauthorized = "AUTH_UNAUTHORIZED"  // 로그인 필요
	AuthTokenExpired = "AUTH_TOKEN_EXPIRED" // 토큰 만료
	AuthTokenInvalid = "AUTH_TOKEN_INVALID" // 잘못된 토큰

	// ==================== 인가/권한 (AUTHZ_) ====================
	AuthzForbidden = "AUTHZ_FORBIDDEN"  // 접근 권한 없음
	AuthzOwnerOnly = "AUTHZ_OWNER_ONLY" // 등록자만 가능

	// ==================== 검증 (VALIDATION_) ====================
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT" // 잘못된 입력
	ValidationInvalidID    = "VALIDATION_INVALID_ID"    // 잘못된 ID
	ValidationInvalidRange = "VALIDATION_INVALID_RANGE" // 범위 초과

	// ==================== 리소스 (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"      // 리소스 없음
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS" // 이미 존재
	ResourceConflict      = "RESOURCE_CONFLICT"       // 충돌

	// ==================== 장소 (PLACE_) ====================
	PlaceNotFound        = "PLACE_NOT_FOUND"         // 장소 없음
	PlaceSlugConflict    = "PLACE_SLUG_CONFLICT"     // slug 할당 실패
	PlaceVersionConflict = "PLACE_VERSION_CONFLICT"  // 동시 수정 충돌
	PlacePageOutOfRange  = "PLACE_PAGE_OUT_OF_RANGE" // 마지막 페이지 초과

	// ==================== 평가 (RATING_) ====================
	RatingInvalidScore  = "RATING_INVALID_SCORE"   // 잘못된 평점
	RatingPlaceNotFound = "RATING_PLACE_NOT_FOUND" // 평가 대상 장소 없음

	// ==================== 요청 제한 (RATE_) ====================
	RateLimited = "RATE_LIMITED" // 요청 과다

	// ==================== 내부 오류 (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"   // 서버 오류
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR" // DB 오류
)
