package graph

// Raw GraphQL documents for every operation the client performs. Kept as
// plain constants so the exact wire shape is visible in one place.

const challengeQuery = `
query Challenge($request: ChallengeRequest!) {
  challenge(request: $request) {
    text
  }
}`

const authenticateMutation = `
mutation Authenticate($request: SignedAuthChallenge!) {
  authenticate(request: $request) {
    accessToken
    refreshToken
  }
}`

const verifyQuery = `
query Verify($request: VerifyRequest!) {
  verify(request: $request)
}`

const refreshMutation = `
mutation Refresh($request: RefreshRequest!) {
  refresh(request: $request) {
    accessToken
    refreshToken
  }
}`

const profilesQuery = `
query Profiles($request: ProfileQueryRequest!) {
  profiles(request: $request) {
    items {
      id
      handle
      name
      bio
      ownedBy
      isDefault
      picture {
        ... on NftImage {
          uri
        }
        ... on MediaSet {
          original {
            url
          }
        }
      }
      stats {
        totalFollowers
        totalFollowing
        totalPosts
        totalComments
        totalCollects
        totalMirrors
        totalPublications
      }
      followModule {
        ... on FeeFollowModuleSettings {
          type
        }
        ... on ProfileFollowModuleSettings {
          type
        }
        ... on RevertFollowModuleSettings {
          type
        }
      }
    }
    pageInfo {
      prev
      next
      totalCount
    }
  }
}`

const profileByHandleQuery = `
query Profile($request: SingleProfileQueryRequest!) {
  profile(request: $request) {
    id
    handle
    ownedBy
  }
}`

const createPostTypedDataMutation = `
mutation CreatePostTypedData($request: CreatePublicPostRequest!) {
  createPostTypedData(request: $request) {
    id
    expiresAt
    typedData {
      types {
        PostWithSig {
          name
          type
        }
      }
      domain {
        name
        chainId
        version
        verifyingContract
      }
      value {
        nonce
        deadline
        profileId
        contentURI
        collectModule
        collectModuleInitData
        referenceModule
        referenceModuleInitData
      }
    }
  }
}`

const createCommentTypedDataMutation = `
mutation CreateCommentTypedData($request: CreatePublicCommentRequest!) {
  createCommentTypedData(request: $request) {
    id
    expiresAt
    typedData {
      types {
        CommentWithSig {
          name
          type
        }
      }
      domain {
        name
        chainId
        version
        verifyingContract
      }
      value {
        nonce
        deadline
        profileId
        profileIdPointed
        pubIdPointed
        contentURI
        collectModule
        collectModuleInitData
        referenceModule
        referenceModuleInitData
        referenceModuleData
      }
    }
  }
}`

const createFollowTypedDataMutation = `
mutation CreateFollowTypedData($request: FollowRequest!) {
  createFollowTypedData(request: $request) {
    id
    expiresAt
    typedData {
      types {
        FollowWithSig {
          name
          type
        }
      }
      domain {
        name
        chainId
        version
        verifyingContract
      }
      value {
        nonce
        deadline
        profileIds
        datas
      }
    }
  }
}`

const createCollectTypedDataMutation = `
mutation CreateCollectTypedData($request: CreateCollectRequest!) {
  createCollectTypedData(request: $request) {
    id
    expiresAt
    typedData {
      types {
        CollectWithSig {
          name
          type
        }
      }
      domain {
        name
        chainId
        version
        verifyingContract
      }
      value {
        nonce
        deadline
        profileId
        pubId
        data
      }
    }
  }
}`

const publicationQuery = `
query Publication($request: PublicationQueryRequest!) {
  publication(request: $request) {
    __typename
    ... on Post {
      id
      appId
      createdAt
      profile {
        id
        handle
        ownedBy
      }
      metadata {
        name
        description
        content
        attributes {
          traitType
          value
        }
      }
    }
    ... on Comment {
      id
      appId
      createdAt
      profile {
        id
        handle
        ownedBy
      }
      metadata {
        name
        description
        content
        attributes {
          traitType
          value
        }
      }
    }
  }
}`

const publicationsQuery = `
query Publications($request: PublicationsQueryRequest!) {
  publications(request: $request) {
    items {
      __typename
      ... on Post {
        id
        appId
        createdAt
        profile {
          id
          handle
          ownedBy
        }
        metadata {
          name
          description
          content
          attributes {
            traitType
            value
          }
        }
      }
      ... on Comment {
        id
        appId
        createdAt
        profile {
          id
          handle
          ownedBy
        }
        metadata {
          name
          description
          content
          attributes {
            traitType
            value
          }
        }
      }
    }
    pageInfo {
      prev
      next
      totalCount
    }
  }
}`

const explorePublicationsQuery = `
query ExplorePublications($request: ExplorePublicationRequest!) {
  explorePublications(request: $request) {
    items {
      __typename
      ... on Post {
        id
        appId
        createdAt
        profile {
          id
          handle
          ownedBy
        }
        metadata {
          name
          description
          content
          attributes {
            traitType
            value
          }
        }
      }
    }
    pageInfo {
      prev
      next
      totalCount
    }
  }
}`

const hasTxHashBeenIndexedQuery = `
query HasTxHashBeenIndexed($request: HasTxHashBeenIndexedRequest!) {
  hasTxHashBeenIndexed(request: $request) {
    __typename
    ... on TransactionIndexedResult {
      indexed
      txHash
      metadataStatus {
        status
        reason
      }
    }
    ... on TransactionError {
      reason
      txReceipt {
        status
      }
    }
  }
}`
